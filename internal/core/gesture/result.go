package gesture

// SwipeResult is the classification of one completed gesture. The zero value
// means no swipe. Axes are evaluated independently: a diagonal gesture can
// set one horizontal and one vertical flag at the same time.
type SwipeResult struct {
	Left  bool `json:"left" yaml:"left"`
	Right bool `json:"right" yaml:"right"`
	Up    bool `json:"up" yaml:"up"`
	Down  bool `json:"down" yaml:"down"`
}

// Any reports whether at least one directional flag is set.
func (r SwipeResult) Any() bool {
	return r.Left || r.Right || r.Up || r.Down
}

func (r SwipeResult) String() string {
	switch {
	case !r.Any():
		return "none"
	default:
		s := ""
		if r.Left {
			s += "left"
		}
		if r.Right {
			s += "right"
		}
		if r.Up {
			if s != "" {
				s += "+"
			}
			s += "up"
		}
		if r.Down {
			if s != "" {
				s += "+"
			}
			s += "down"
		}
		return s
	}
}
