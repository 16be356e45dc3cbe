package pdp

import "io"

// progressChunk is the number of bytes between successive progress reports.
const progressChunk int64 = 64 * 1024

// progressReader calls emit after every progressChunk bytes read.
type progressReader struct {
	r       io.Reader
	written int64
	emitted int64
	total   int64
	emit    func(written, total int64)
}

func newProgressReader(r io.Reader, total int64, emit func(written, total int64)) *progressReader {
	return &progressReader{r: r, total: total, emit: emit}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.written += int64(n)
		for p.written-p.emitted >= progressChunk {
			p.emitted += progressChunk
			p.emit(p.emitted, p.total)
		}
	}
	return n, err
}
