package logx

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const dailyLayout = "2006-01-02"

// DailyFile appends to dir/prefix.YYYY-MM-DD and switches files when the
// local date changes.
type DailyFile struct {
	dir    string
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

// NewDailyFile creates dir if needed and returns a writer for it.
func NewDailyFile(dir, prefix string) (*DailyFile, error) {
	if dir == "" {
		return nil, errors.New("log dir is required")
	}
	if prefix == "" {
		prefix = "splix.log"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DailyFile{dir: dir, prefix: prefix, now: time.Now}, nil
}

// Path returns the file the next write would go to.
func (d *DailyFile) Path() string {
	return filepath.Join(d.dir, d.prefix+"."+d.now().Format(dailyLayout))
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	day := d.now().Format(dailyLayout)
	if d.file == nil || day != d.day {
		if d.file != nil {
			_ = d.file.Close()
			d.file = nil
		}
		f, err := os.OpenFile(filepath.Join(d.dir, d.prefix+"."+day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, err
		}
		d.file = f
		d.day = day
	}
	return d.file.Write(p)
}

// Close closes the current file.
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
