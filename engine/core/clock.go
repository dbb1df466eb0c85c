package core

import "time"

// Clock is the engine time provider. Times are reported in seconds.
type Clock struct {
	startTime float64
	elapsed   float64
	now       func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.startTime != 0 {
		c.elapsed = c.seconds() - c.startTime
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = c.seconds()
	c.elapsed = 0
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = 0
}

func (c *Clock) IsRunning() bool {
	return c.startTime != 0
}

// Elapsed returns the seconds between Start and the last Update.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

func (c *Clock) seconds() float64 {
	return float64(c.now().UnixNano()) / float64(time.Second)
}
