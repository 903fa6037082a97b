package extract

import (
	"fmt"
	"io"
)

// Sink observes the progress of a walk. It is passed per call and a nil
// Sink is silent.
type Sink interface {
	// Begin is called once before the first page of a walk.
	Begin(dataset string)
	// Page is called before every page fetch.
	Page(dataset string, page int)
}

// ConsoleSink prints a progress header and one '#' per page.
type ConsoleSink struct {
	Out io.Writer
}

func (s ConsoleSink) Begin(string) {
	fmt.Fprint(s.Out, "[Getting data:]")
}

func (s ConsoleSink) Page(string, int) {
	fmt.Fprint(s.Out, "#")
}

type noopSink struct{}

func (noopSink) Begin(string)     {}
func (noopSink) Page(string, int) {}
