package attendance

import "time"

// Clock supplies "now" for window checks and date keys. All computations
// run in a single fixed timezone regardless of the host's zone.
type Clock interface {
	Now() time.Time
}

type zoneClock struct {
	loc *time.Location
}

// NewZoneClock returns a clock pinned to the named IANA timezone.
func NewZoneClock(name string) (Clock, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return zoneClock{loc: loc}, nil
}

func (c zoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}
