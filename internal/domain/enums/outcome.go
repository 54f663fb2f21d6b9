package enums

// Outcome is the moderator decision stored on a resolved report.
type Outcome string

const (
	OutcomeBanned    Outcome = "banned"
	OutcomeDismissed Outcome = "dismissed"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeBanned, OutcomeDismissed:
		return true
	}
	return false
}
