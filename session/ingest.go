package session

import (
	"fmt"
	"strings"
)

// Ingest loads the first of paths and restarts the pipeline with it. Extra
// paths are dropped with a warning. On any failure an error diagnostic is
// emitted and the current stream keeps playing.
func (s *Session) Ingest(paths []string) error {
	if len(paths) == 0 {
		return ErrNoPaths
	}
	if len(paths) > 1 {
		s.warn(fmt.Sprintf("received %d paths, only %s will be loaded (ignored: %s)",
			len(paths), paths[0], strings.Join(paths[1:], ", ")))
	}
	if err := s.ingestOne(paths[0]); err != nil {
		return err
	}
	if s.playlist != nil {
		s.playlist.Add(paths[0])
	}
	return nil
}

func (s *Session) ingestOne(path string) error {
	stream, err := s.registry.DecodeFile(path)
	if err != nil {
		s.fail(fmt.Sprintf("cannot load %s: %v", path, err))
		return err
	}
	stream = stream.Resampled(s.opts.OutputSampleRate)
	if err := s.load(stream); err != nil {
		s.fail(err.Error())
		return err
	}
	return nil
}
