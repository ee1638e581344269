package region

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/livability-cli/internal/model"
)

// Dataset lazily loads and memoizes a region collection. The first Load reads
// and parses the source; every later call returns the same slice, or the same
// error if the first attempt failed.
type Dataset struct {
	path  string
	parse func(path string) ([]Region, ParseReport, error)

	once    sync.Once
	regions []Region
	report  atomic.Pointer[ParseReport]
	err     error
}

// NewDataset returns a dataset backed by the file at path. The format is chosen
// from the extension: .geojson/.json (optionally .gz) or .shp.
func NewDataset(path string) *Dataset {
	return &Dataset{path: path, parse: parseFile}
}

// NewStaticDataset wraps an already-built region slice.
func NewStaticDataset(regions []Region) *Dataset {
	d := &Dataset{path: "static"}
	d.once.Do(func() {
		d.regions = regions
		d.report.Store(&ParseReport{Features: len(regions), Loaded: len(regions)})
	})
	return d
}

// Path returns the backing source path.
func (d *Dataset) Path() string { return d.path }

// Load returns the parsed regions. Errors match model.ErrDataUnavailable.
func (d *Dataset) Load() ([]Region, error) {
	d.once.Do(func() {
		log := zap.L().With(zap.String("component", "region.dataset"), zap.String("path", d.path))

		regions, report, err := d.parse(d.path)
		if err == nil && report.Features > 0 && len(regions) == 0 {
			err = eris.Errorf("region: all %d features rejected", report.Features)
		}
		if err != nil {
			d.err = eris.Wrap(model.ErrDataUnavailable, err.Error())
			log.Error("region dataset unavailable", zap.Error(err))
			return
		}

		d.regions = regions
		d.report.Store(&report)
		log.Info("region dataset loaded",
			zap.Int("features", report.Features),
			zap.Int("loaded", report.Loaded),
			zap.Int("rejected", report.Rejected),
		)
	})
	return d.regions, d.err
}

// Report returns parse counters. It is zero until a Load has succeeded and
// is safe to call while the first Load is still running.
func (d *Dataset) Report() ParseReport {
	if r := d.report.Load(); r != nil {
		return *r
	}
	return ParseReport{}
}

func parseFile(path string) ([]Region, ParseReport, error) {
	lower := strings.ToLower(path)
	if filepath.Ext(lower) == ".shp" {
		return ParseShapefile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, ParseReport{}, eris.Wrapf(err, "region: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if strings.HasSuffix(lower, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, ParseReport{}, eris.Wrapf(err, "region: gunzip %s", path)
		}
		defer gz.Close() //nolint:errcheck
		r = gz
	}

	return ParseGeoJSON(r)
}

func rejectLog(index int, err error) {
	zap.L().Debug("region: rejected feature", zap.Int("index", index), zap.Error(err))
}
