package lightgbm_test

import (
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/okian/renalrisk/internal/adapters/lightgbm"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	akiFixture = "testdata/aki_model.txt"
	akdFixture = "testdata/akd_model.txt"
)

var (
	akiVector = []float64{0, 0, 140.0, 1, 70.0, 350.0, 0, 5.5, 0, 65.0}
	akdVector = []float64{60, 1, 2, 4.0, 2.2, 1.015, 0, 1.1, 1, 120.0}
)

// stump builds a one-split model over two features.
func stump(objective, decisionType, extraHeader string) string {
	return "tree\nversion=v4\nnum_class=1\nnum_tree_per_iteration=1\nmax_feature_idx=1\n" +
		"objective=" + objective + "\n" + extraHeader +
		"\nTree=0\nnum_leaves=2\nnum_cat=0\nsplit_feature=1\nthreshold=0.5\n" +
		"decision_type=" + decisionType + "\nleft_child=-1\nright_child=-2\nleaf_value=-1 1\n" +
		"\nend of trees\n"
}

func TestLoadFile_Fixtures(t *testing.T) {
	Convey("Given the AKI fixture model", t, func() {
		e, err := lightgbm.LoadFile(akiFixture)
		So(err, ShouldBeNil)

		Convey("Then its header is exposed", func() {
			So(e.Version(), ShouldEqual, "v4")
			So(e.NumFeatures(), ShouldEqual, 10)
			So(e.NumTrees(), ShouldEqual, 4)
			So(e.Objective(), ShouldEqual, "binary sigmoid:1")
			So(e.FeatureNames()[8], ShouldEqual, "PPI_1")
		})

		Convey("Then the scenario vector scores the pinned value", func() {
			raw, err := e.Raw(akiVector)
			So(err, ShouldBeNil)
			So(raw, ShouldAlmostEqual, -1.4, 1e-12)

			p, err := e.Predict(akiVector)
			So(err, ShouldBeNil)
			So(p, ShouldAlmostEqual, 0.19781611144141825, 1e-12)
		})

		Convey("Then splits route on the bound features", func() {
			v := append([]float64(nil), akiVector...)
			v[0] = 1 // diuretics: -0.15 -> 0.40
			raw, err := e.Raw(v)
			So(err, ShouldBeNil)
			So(raw, ShouldAlmostEqual, -0.85, 1e-12)

			v[2] = 130 // sodium below threshold: -0.2 -> 0.3
			raw, err = e.Raw(v)
			So(err, ShouldBeNil)
			So(raw, ShouldAlmostEqual, -0.35, 1e-12)
		})
	})

	Convey("Given the AKD fixture model with a categorical split", t, func() {
		e, err := lightgbm.LoadFile(akdFixture)
		So(err, ShouldBeNil)

		Convey("Then the scenario vector scores the pinned value", func() {
			p, err := e.Predict(akdVector)
			So(err, ShouldBeNil)
			So(p, ShouldAlmostEqual, 0.598687660112452, 1e-12)
		})

		Convey("Then a category outside the bitset goes right", func() {
			v := append([]float64(nil), akdVector...)
			v[8] = 0 // history of surgery: 0.15 -> -0.05
			raw, err := e.Raw(v)
			So(err, ShouldBeNil)
			So(raw, ShouldAlmostEqual, 0.2, 1e-12)
		})

		Convey("Then repeated scoring is identical", func() {
			first, _ := e.Predict(akdVector)
			for i := 0; i < 100; i++ {
				again, _ := e.Predict(akdVector)
				So(again, ShouldEqual, first)
			}
		})
	})
}

func TestPredict_Bounds(t *testing.T) {
	Convey("Given extreme raw scores", t, func() {
		e, err := lightgbm.Parse(strings.NewReader(stump("binary sigmoid:50", "2", "")))
		So(err, ShouldBeNil)

		Convey("Then probabilities stay within [0,1]", func() {
			for _, v := range [][]float64{{0, 0}, {0, 1}, {0, math.MaxFloat64}, {0, -math.MaxFloat64}} {
				p, err := e.Predict(v)
				So(err, ShouldBeNil)
				So(p, ShouldBeBetweenOrEqual, 0, 1)
			}
		})

		Convey("Then a wrong vector length is rejected", func() {
			_, err := e.Predict([]float64{1})
			So(errors.Is(err, lightgbm.ErrFeatureCount), ShouldBeTrue)
		})
	})
}

func TestPredict_MissingValues(t *testing.T) {
	Convey("Given numerical splits with different missing types", t, func() {
		Convey("When missing type is None", func() {
			e, err := lightgbm.Parse(strings.NewReader(stump("binary sigmoid:1", "2", "")))
			So(err, ShouldBeNil)

			Convey("Then NaN is treated as zero", func() {
				raw, err := e.Raw([]float64{0, math.NaN()})
				So(err, ShouldBeNil)
				So(raw, ShouldEqual, -1)
			})
		})

		Convey("When missing type is NaN and default goes right", func() {
			// 8 = missing NaN, default_left unset
			e, err := lightgbm.Parse(strings.NewReader(stump("binary sigmoid:1", "8", "")))
			So(err, ShouldBeNil)

			Convey("Then NaN follows the default branch", func() {
				raw, err := e.Raw([]float64{0, math.NaN()})
				So(err, ShouldBeNil)
				So(raw, ShouldEqual, 1)
			})
		})

		Convey("When missing type is Zero and default goes right", func() {
			// 4 = missing Zero, default_left unset
			e, err := lightgbm.Parse(strings.NewReader(stump("binary sigmoid:1", "4", "")))
			So(err, ShouldBeNil)

			Convey("Then zero follows the default branch", func() {
				raw, err := e.Raw([]float64{0, 0})
				So(err, ShouldBeNil)
				So(raw, ShouldEqual, 1)
			})
		})
	})
}

func TestParse_Objectives(t *testing.T) {
	Convey("Given different objectives", t, func() {
		Convey("When the objective is cross_entropy", func() {
			e, err := lightgbm.Parse(strings.NewReader(stump("cross_entropy", "2", "")))
			So(err, ShouldBeNil)
			p, _ := e.Predict([]float64{0, 1})
			So(p, ShouldAlmostEqual, 1/(1+math.Exp(-1)), 1e-12)
		})

		Convey("When the model averages its output", func() {
			e, err := lightgbm.Parse(strings.NewReader(stump("binary sigmoid:1", "2", "average_output\n")))
			So(err, ShouldBeNil)
			raw, _ := e.Raw([]float64{0, 1})
			So(raw, ShouldEqual, 1)
		})

		Convey("When the objective is not a probability", func() {
			_, err := lightgbm.Parse(strings.NewReader(stump("regression", "2", "")))
			So(errors.Is(err, lightgbm.ErrUnsupported), ShouldBeTrue)
		})
	})
}

func TestParse_Corrupt(t *testing.T) {
	Convey("Given corrupt or unsupported documents", t, func() {
		valid := stump("binary sigmoid:1", "2", "")
		cases := map[string]struct {
			doc  string
			kind error
		}{
			"empty":          {"", lightgbm.ErrParse},
			"not a model":    {"{\"trees\": []}\n", lightgbm.ErrParse},
			"truncated":      {strings.TrimSuffix(valid, "end of trees\n"), lightgbm.ErrParse},
			"no version":     {strings.Replace(valid, "version=v4\n", "", 1), lightgbm.ErrParse},
			"future version": {strings.Replace(valid, "version=v4", "version=v9", 1), lightgbm.ErrUnsupported},
			"multiclass":     {strings.Replace(valid, "num_class=1", "num_class=3", 1), lightgbm.ErrUnsupported},
			"bad leaf count": {strings.Replace(valid, "leaf_value=-1 1", "leaf_value=-1", 1), lightgbm.ErrParse},
			"bad number":     {strings.Replace(valid, "threshold=0.5", "threshold=abc", 1), lightgbm.ErrParse},
			"feature range":  {strings.Replace(valid, "split_feature=1", "split_feature=7", 1), lightgbm.ErrParse},
			"leaf range":     {strings.Replace(valid, "right_child=-2", "right_child=-5", 1), lightgbm.ErrParse},
			"self cycle":     {strings.Replace(valid, "right_child=-2", "right_child=0", 1), lightgbm.ErrParse},
			"linear tree":    {strings.Replace(valid, "leaf_value=-1 1\n", "leaf_value=-1 1\nis_linear=1\n", 1), lightgbm.ErrUnsupported},
			"tree sizes":     {strings.Replace(valid, "objective=", "tree_sizes=10 20\nobjective=", 1), lightgbm.ErrParse},
			"stray line":     {strings.Replace(valid, "num_cat=0\n", "num_cat=0\ngarbage\n", 1), lightgbm.ErrParse},
			"no trees":       {"tree\nversion=v4\nmax_feature_idx=1\nobjective=binary sigmoid:1\n\nend of trees\n", lightgbm.ErrParse},
		}

		for name, c := range cases {
			_, err := lightgbm.Parse(strings.NewReader(c.doc))
			So(err, ShouldNotBeNil)
			if !errors.Is(err, c.kind) {
				t.Errorf("%s: got %v, want %v", name, err, c.kind)
			}
		}
	})

	Convey("Given a path that does not exist", t, func() {
		_, err := lightgbm.LoadFile("testdata/missing_model.txt")

		Convey("Then the os error is preserved", func() {
			So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
		})
	})
}
