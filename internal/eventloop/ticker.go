package eventloop

import "time"

// TickerPump is a Pump for sessions without OS sources. It sleeps for each
// slice and calls Tick whenever Interval has elapsed since the last tick.
type TickerPump struct {
	Interval time.Duration
	Tick     func(now time.Time)

	now   func() time.Time
	sleep func(time.Duration)
	last  time.Time
}

// NewTickerPump returns a pump that calls tick every interval.
func NewTickerPump(interval time.Duration, tick func(time.Time)) *TickerPump {
	return &TickerPump{
		Interval: interval,
		Tick:     tick,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Pump sleeps for slice, then ticks if due. The first call ticks
// immediately.
func (p *TickerPump) Pump(slice time.Duration) error {
	if p.last.IsZero() {
		p.fire()
	}
	p.sleep(slice)
	if p.now().Sub(p.last) >= p.Interval {
		p.fire()
	}
	return nil
}

func (p *TickerPump) fire() {
	p.last = p.now()
	if p.Tick != nil {
		p.Tick(p.last)
	}
}
