package systemprompt

import (
	"fmt"
	"sync"
	"time"
)

// ContextProvider is an interface that defines the title and info of a context provider
type ContextProvider interface {
	Title() string
	Info() string
}

// Static is a context provider holding a piece of text which can be replaced between runs
type Static struct {
	title string
	info  string
	mu    sync.RWMutex
}

var _ ContextProvider = (*Static)(nil)

func NewStatic(title string, info string) *Static {
	return &Static{
		title: title,
		info:  info,
	}
}

func (s *Static) Title() string {
	return s.title
}

func (s *Static) Info() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

func (s *Static) SetInfo(info string) {
	s.mu.Lock()
	s.info = info
	s.mu.Unlock()
}

// CurrentDate provides the current date
type CurrentDate struct {
	title  string
	layout string
	now    func() time.Time
}

var _ ContextProvider = (*CurrentDate)(nil)

// NewCurrentDate returns a CurrentDate provider formatting the date with layout, 2006-01-02 by default
func NewCurrentDate(layout string) *CurrentDate {
	if layout == "" {
		layout = time.DateOnly
	}
	return &CurrentDate{
		title:  "Current Date",
		layout: layout,
		now:    time.Now,
	}
}

func (c *CurrentDate) Title() string {
	return c.title
}

func (c *CurrentDate) Info() string {
	return fmt.Sprintf("The current date is %s.", c.now().Format(c.layout))
}
