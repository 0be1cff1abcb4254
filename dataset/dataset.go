// Package dataset loads the tabular housing data used for training and
// splits it into train and test sets.
package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/peakwhale/harbor/pkg/errors"
	"github.com/peakwhale/harbor/schema"
)

// maxRemoteBytes は取得するCSVの上限サイズ
const maxRemoteBytes = 64 << 20

// Dataset はスキーマ順に並べ替えた特徴量行列と目的変数
type Dataset struct {
	X        *mat.Dense // n × len(Features)
	Y        *mat.Dense // n × 1
	Features []string
	Target   string
	Source   string
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	r, _ := d.X.Dims()
	return r
}

// Source は学習データの取得元
// Path が存在すればローカルCSVを使用し、存在しない場合のみ URL から取得する
type Source struct {
	Path   string
	URL    string
	Client *http.Client
}

// Load reads the dataset described by src and reselects its columns by
// header name in schema order.
func Load(ctx context.Context, src Source, s *schema.Schema) (*Dataset, error) {
	if src.Path != "" {
		f, err := os.Open(src.Path)
		switch {
		case err == nil:
			defer f.Close()
			d, err := ReadCSV(f, s)
			if err != nil {
				return nil, errors.Wrapf(err, "read %s", src.Path)
			}
			d.Source = src.Path
			return d, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, errors.Wrapf(err, "open %s", src.Path)
		}
	}

	if src.URL == "" {
		return nil, errors.Newf("could not load dataset: %s does not exist and no remote URL is configured", src.Path)
	}
	d, err := fetch(ctx, src, s)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load dataset from %s", src.URL)
	}
	d.Source = src.URL
	return d, nil
}

func fetch(ctx context.Context, src Source, s *schema.Schema) (*Dataset, error) {
	client := src.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("unexpected status %s", resp.Status)
	}
	return ReadCSV(io.LimitReader(resp.Body, maxRemoteBytes), s)
}

// ReadCSV parses a CSV stream with a header row. Column order in the stream
// is irrelevant; every schema feature and the target must be present.
func ReadCSV(r io.Reader, s *schema.Schema) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Wrap(errors.ErrEmptyData, "no header row")
		}
		return nil, errors.Wrap(err, "read header")
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	columns := s.Columns()
	positions := make([]int, len(columns))
	var missing []string
	for i, c := range columns {
		pos, ok := index[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		positions[i] = pos
	}
	if len(missing) > 0 {
		return nil, errors.Wrap(errors.NewMissingFeaturesError(missing), "dataset is missing required columns")
	}

	nf := s.Len()
	var xs, ys []float64
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		for i, pos := range positions {
			raw := strings.TrimSpace(rec[pos])
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errors.Newf("line %d: column %s: %q is not a number", line, columns[i], raw)
			}
			if i < nf {
				xs = append(xs, v)
			} else {
				ys = append(ys, v)
			}
		}
	}

	n := len(ys)
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset has no rows")
	}
	return &Dataset{
		X:        mat.NewDense(n, nf, xs),
		Y:        mat.NewDense(n, 1, ys),
		Features: s.Names(),
		Target:   s.Target().Name,
	}, nil
}
