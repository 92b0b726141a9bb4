package pipeline

// Column holds the items currently in one stage.
type Column[T any] struct {
	Stage string
	Items []T
}

// Board partitions a collection by stage. Items whose status is not a
// configured stage are kept in Unrecognized rather than dropped.
type Board[T any] struct {
	Columns      []Column[T]
	Unrecognized []T
}

// GroupByStage builds one column per configured stage, in configured order,
// preserving input order within each column.
func GroupByStage[T any](items []T, stages Stages, statusOf func(T) string) Board[T] {
	board := Board[T]{
		Columns:      make([]Column[T], len(stages.ids)),
		Unrecognized: []T{},
	}
	for i, id := range stages.ids {
		board.Columns[i] = Column[T]{Stage: id, Items: []T{}}
	}

	for _, item := range items {
		i, ok := stages.index[statusOf(item)]
		if !ok {
			board.Unrecognized = append(board.Unrecognized, item)
			continue
		}
		board.Columns[i].Items = append(board.Columns[i].Items, item)
	}

	return board
}

// Items returns the items in stage, or nil when stage is not on the board.
func (b Board[T]) Items(stage string) []T {
	for _, column := range b.Columns {
		if column.Stage == stage {
			return column.Items
		}
	}
	return nil
}

// Map returns the columns keyed by stage.
func (b Board[T]) Map() map[string][]T {
	out := make(map[string][]T, len(b.Columns))
	for _, column := range b.Columns {
		out[column.Stage] = column.Items
	}
	return out
}

// Len counts every item on the board, including unrecognized ones.
func (b Board[T]) Len() int {
	total := len(b.Unrecognized)
	for _, column := range b.Columns {
		total += len(column.Items)
	}
	return total
}
