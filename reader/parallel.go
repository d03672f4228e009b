package reader

import (
	"io"

	"github.com/sqlstreamdb/sqlstream/schema"
)

// NewParallel wraps inner so its rows are produced by a single background
// goroutine and consumed through a buffered channel, per spec.md §5's
// optional parallel reader wrapper. This is a throughput optimization, not
// a correctness boundary: row order and content are unchanged.
func NewParallel(inner RowIter, bufferSize int) RowIter {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	p := &parallelIter{
		rows: make(chan schema.Row, bufferSize),
		errs: make(chan error, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
		src:  inner,
	}
	go p.produce()
	return p
}

type parallelIter struct {
	rows chan schema.Row
	errs chan error
	stop chan struct{}
	done chan struct{}
	src  RowIter
}

func (p *parallelIter) produce() {
	defer close(p.done)
	defer close(p.rows)
	for {
		row, err := p.src.Next()
		if err != nil {
			select {
			case p.errs <- err:
			case <-p.stop:
			}
			return
		}
		select {
		case p.rows <- row:
		case <-p.stop:
			return
		}
	}
}

func (p *parallelIter) Next() (schema.Row, error) {
	select {
	case row, ok := <-p.rows:
		if !ok {
			select {
			case err := <-p.errs:
				return schema.Row{}, err
			default:
				return schema.Row{}, io.EOF
			}
		}
		return row, nil
	case err := <-p.errs:
		return schema.Row{}, err
	}
}

func (p *parallelIter) Close() error {
	select {
	case <-p.done:
	default:
		close(p.stop)
		<-p.done
	}
	return p.src.Close()
}
