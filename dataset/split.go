package dataset

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/peakwhale/harbor/pkg/errors"
)

const (
	// DefaultTestSize は評価用に取り置くサンプルの割合
	DefaultTestSize = 0.2
	// DefaultSeed は分割の乱数シード
	DefaultSeed uint64 = 42
)

// Split は学習用と評価用に分割されたデータ
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.Dense
	TrainIndex    []int
	TestIndex     []int
}

// TrainTestSplit shuffles the rows of X and y with a PCG generator seeded by
// seed and holds out ceil(testSize*n) of them for testing. The same seed and
// data always produce the same split.
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed uint64) (*Split, error) {
	n, c := X.Dims()
	ny, cy := y.Dims()
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "TrainTestSplit")
	}
	if ny != n {
		return nil, errors.NewDimensionError("TrainTestSplit", n, ny, 0)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, errors.NewValueError("TrainTestSplit", "test size must be in (0, 1)")
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTrain < 1 {
		return nil, errors.NewValueError("TrainTestSplit", "not enough samples to leave a training set")
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)
	testIdx, trainIdx := perm[:nTest], perm[nTest:]

	return &Split{
		XTrain:     gather(X, trainIdx, c),
		XTest:      gather(X, testIdx, c),
		YTrain:     gather(y, trainIdx, cy),
		YTest:      gather(y, testIdx, cy),
		TrainIndex: append([]int(nil), trainIdx...),
		TestIndex:  append([]int(nil), testIdx...),
	}, nil
}

func gather(m mat.Matrix, rows []int, cols int) *mat.Dense {
	out := mat.NewDense(len(rows), cols, nil)
	for i, r := range rows {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(r, j))
		}
	}
	return out
}
