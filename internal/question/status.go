package question

// Status is the navigator state of one item.
type Status string

const (
	StatusNotSeen        Status = "not_seen"
	StatusSeenUnanswered Status = "seen_unanswered"
	StatusAnswered       Status = "answered"
	StatusMarked         Status = "marked"
)

// StatusOf derives an item's navigator status. Marking wins over every
// other state.
func StatusOf(visited, answered, marked bool) Status {
	switch {
	case marked:
		return StatusMarked
	case answered:
		return StatusAnswered
	case visited:
		return StatusSeenUnanswered
	default:
		return StatusNotSeen
	}
}
