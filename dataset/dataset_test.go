package dataset

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/peakwhale/harbor/pkg/errors"
	"github.com/peakwhale/harbor/schema"
)

// 列順をスキーマと変えたCSVを生成する
func housingCSV(rows int) string {
	cols := schema.Housing().Columns()
	rev := make([]string, len(cols))
	for i, c := range cols {
		rev[len(cols)-1-i] = c
	}

	var b strings.Builder
	b.WriteString("ID," + strings.Join(rev, ",") + "\n")
	for r := 0; r < rows; r++ {
		fmt.Fprintf(&b, "%d", r)
		for i := range rev {
			// 値 = 行番号*100 + スキーマ上の列位置
			pos := len(cols) - 1 - i
			fmt.Fprintf(&b, ",%d", r*100+pos)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func TestReadCSVReordersColumns(t *testing.T) {
	s := schema.Housing()
	d, err := ReadCSV(strings.NewReader(housingCSV(3)), s)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if d.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", d.Len())
	}
	for r := 0; r < 3; r++ {
		for j := 0; j < s.Len(); j++ {
			if got, want := d.X.At(r, j), float64(r*100+j); got != want {
				t.Errorf("X[%d][%d] = %v, want %v", r, j, got, want)
			}
		}
		if got, want := d.Y.At(r, 0), float64(r*100+13); got != want {
			t.Errorf("Y[%d] = %v, want %v", r, got, want)
		}
	}
	if d.Target != "MEDV" || !reflect.DeepEqual(d.Features, s.Names()) {
		t.Errorf("metadata = %v / %v", d.Target, d.Features)
	}
}

func TestReadCSVMissingColumns(t *testing.T) {
	csv := "CRIM,ZN,INDUS,CHAS,NOX,AGE,DIS,RAD,TAX,PTRATIO,B\n1,2,3,4,5,6,7,8,9,10,11\n"
	_, err := ReadCSV(strings.NewReader(csv), schema.Housing())

	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("ReadCSV() error = %v, want ValidationError", err)
	}
	want := []string{"RM", "LSTAT", "MEDV"}
	if !reflect.DeepEqual(ve.Missing, want) {
		t.Errorf("Missing = %v, want %v", ve.Missing, want)
	}
	if !strings.Contains(err.Error(), "missing required columns") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestReadCSVErrors(t *testing.T) {
	header := strings.Join(schema.Housing().Columns(), ",")
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"header only", header + "\n"},
		{"non numeric", header + "\n" + strings.Repeat("1,", 13) + "abc\n"},
		{"short row", header + "\n1,2,3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.in), schema.Housing()); err == nil {
				t.Error("ReadCSV() expected error")
			}
		})
	}
}

func TestLoadPrefersLocalFile(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, housingCSV(4))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "housing.csv")
	if err := os.WriteFile(path, []byte(housingCSV(2)), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := Load(context.Background(), Source{Path: path, URL: srv.URL}, schema.Housing())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.Len() != 2 || d.Source != path || hits != 0 {
		t.Errorf("Load() used %s with %d rows, remote hits = %d", d.Source, d.Len(), hits)
	}
}

func TestLoadRemoteFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, housingCSV(4))
	}))
	defer srv.Close()

	missing := filepath.Join(t.TempDir(), "absent.csv")
	d, err := Load(context.Background(), Source{Path: missing, URL: srv.URL}, schema.Housing())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.Len() != 4 || d.Source != srv.URL {
		t.Errorf("Load() = %d rows from %s", d.Len(), d.Source)
	}
}

func TestLoadFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	missing := filepath.Join(t.TempDir(), "absent.csv")
	_, err := Load(context.Background(), Source{Path: missing}, schema.Housing())
	if err == nil || !strings.Contains(err.Error(), "no remote URL is configured") {
		t.Errorf("Load() without file or URL error = %v, want a hint about the remote URL", err)
	}
	if _, err = Load(context.Background(), Source{Path: missing, URL: srv.URL}, schema.Housing()); err == nil {
		t.Error("Load() with 404 remote should fail")
	}
}

func TestTrainTestSplit(t *testing.T) {
	d, err := ReadCSV(strings.NewReader(housingCSV(10)), schema.Housing())
	if err != nil {
		t.Fatal(err)
	}

	sp, err := TrainTestSplit(d.X, d.Y, DefaultTestSize, DefaultSeed)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}
	if r, _ := sp.XTest.Dims(); r != 2 {
		t.Errorf("test rows = %d, want 2", r)
	}
	if r, _ := sp.XTrain.Dims(); r != 8 {
		t.Errorf("train rows = %d, want 8", r)
	}

	// 学習用と評価用は重複せず全行を覆う
	all := append(append([]int{}, sp.TrainIndex...), sp.TestIndex...)
	sort.Ints(all)
	for i, v := range all {
		if i != v {
			t.Fatalf("indices do not form a partition: %v", all)
		}
	}

	// 行と目的変数の対応が保たれる
	for i, idx := range sp.TrainIndex {
		if sp.XTrain.At(i, 0) != d.X.At(idx, 0) || sp.YTrain.At(i, 0) != d.Y.At(idx, 0) {
			t.Errorf("train row %d does not match source row %d", i, idx)
		}
	}

	again, err := TrainTestSplit(d.X, d.Y, DefaultTestSize, DefaultSeed)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sp.TestIndex, again.TestIndex) {
		t.Errorf("same seed produced different splits: %v vs %v", sp.TestIndex, again.TestIndex)
	}
}

func TestTrainTestSplitInvalid(t *testing.T) {
	d, err := ReadCSV(strings.NewReader(housingCSV(3)), schema.Housing())
	if err != nil {
		t.Fatal(err)
	}
	for _, size := range []float64{0, 1, -0.5, 1.5} {
		if _, err := TrainTestSplit(d.X, d.Y, size, 1); err == nil {
			t.Errorf("TrainTestSplit(testSize=%v) expected error", size)
		}
	}

	one, err := ReadCSV(strings.NewReader(housingCSV(1)), schema.Housing())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := TrainTestSplit(one.X, one.Y, 0.2, 1); err == nil {
		t.Error("TrainTestSplit() of one row expected error")
	}
}
