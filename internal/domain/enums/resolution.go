package enums

// Resolution is the report lifecycle state. It only ever moves forward:
// unset -> pending -> resolved.
type Resolution string

const (
	ResolutionUnset    Resolution = "unset"
	ResolutionPending  Resolution = "pending"
	ResolutionResolved Resolution = "resolved"
)

func (r Resolution) Valid() bool {
	switch r {
	case ResolutionUnset, ResolutionPending, ResolutionResolved:
		return true
	}
	return false
}
