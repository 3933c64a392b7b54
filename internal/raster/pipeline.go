package raster

// Stage is one step of a processing chain. Implementations either return a
// new buffer or the (documented) mutated input.
type Stage interface {
	Process(buf *Buffer) (*Buffer, error)
}

// Apply runs the stages in order, feeding each the previous stage's output.
func Apply(buf *Buffer, stages ...Stage) (*Buffer, error) {
	var err error
	for _, stage := range stages {
		if buf, err = stage.Process(buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}
