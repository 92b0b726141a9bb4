package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/growth-crm/internal/application"
	"github.com/example/growth-crm/internal/pipeline"
	"github.com/example/growth-crm/internal/recurrence"
)

// ServiceFactory builds application services that share a deterministic
// clock and identifier sequence.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Registry    *pipeline.Registry
	Location    *time.Location
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a factory using ReferenceTime, the "id"
// prefix, the built-in vocabularies and UTC.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Registry == nil {
		factory.Registry = pipeline.DefaultRegistry()
	}
	if factory.Location == nil {
		factory.Location = time.UTC
	}
	return factory
}

func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Clock = clock }
}

func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.IDGenerator = generator }
}

func WithRegistry(registry *pipeline.Registry) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Registry = registry }
}

// WithLocation sets the zone recurrence rules are evaluated in.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Location = loc }
}

// Expander returns a recurrence expander reading the factory clock.
func (f *ServiceFactory) Expander(opts ...recurrence.Option) *recurrence.Expander {
	return recurrence.NewExpander(f.Location, f.Clock.NowFunc(), opts...)
}

func (f *ServiceFactory) NewLeadService(leads application.LeadRepository, logger *slog.Logger) *application.LeadService {
	return application.NewLeadServiceWithLogger(leads, f.Registry, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), logger)
}

// NewPostService uses expander, or the factory Expander when nil.
func (f *ServiceFactory) NewPostService(posts application.PostRepository, expander *recurrence.Expander, logger *slog.Logger) *application.PostService {
	if expander == nil {
		expander = f.Expander()
	}
	return application.NewPostServiceWithLogger(posts, expander, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), logger)
}

func (f *ServiceFactory) NewBookingService(bookings application.BookingRepository, leads application.LeadRepository, logger *slog.Logger) *application.BookingService {
	return application.NewBookingServiceWithLogger(bookings, leads, f.Registry, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), logger)
}
