package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/internal/domain/schema"
	types "github.com/okian/renalrisk/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewPrediction(t *testing.T) {
	Convey("Given a domain result", t, func() {
		res := model.NewResult(model.TargetAKI, 0.19781611144141825)

		Convey("When converting it for the wire", func() {
			p := types.NewPrediction("req-1", res)

			Convey("Then the fields are carried over", func() {
				So(p.RequestID, ShouldEqual, "req-1")
				So(p.Target, ShouldEqual, "aki")
				So(p.Probability, ShouldEqual, res.Probability)
				So(p.Display, ShouldEqual, "0.20")
			})
		})
	})
}

func TestDescribeSchema(t *testing.T) {
	Convey("Given the AKI schema", t, func() {
		d := types.DescribeSchema(schema.AKI())

		Convey("Then every slot is listed in vector order", func() {
			So(d.Target, ShouldEqual, "aki")
			So(d.Label, ShouldEqual, "AKI")
			So(len(d.Slots), ShouldEqual, schema.Length)
			for i, s := range d.Slots {
				So(s.Position, ShouldEqual, i)
			}
			So(d.Slots[6].Field, ShouldEqual, schema.KeyPPI)
			So(d.Slots[8].Field, ShouldEqual, schema.KeyPPI)
		})

		Convey("And categorical inputs expose their options", func() {
			var found bool
			for _, f := range d.Inputs {
				if f.Key == schema.KeyUrineProtein {
					found = true
					So(f.Kind, ShouldEqual, "categorical")
					So(f.Options, ShouldResemble, []string{"Negative", "+", "++", "+++"})
				}
			}
			So(found, ShouldBeTrue)
		})
	})

	Convey("Given the AKD schema", t, func() {
		d := types.DescribeSchema(schema.AKD())

		Convey("Then age is a whole number input", func() {
			So(d.Inputs[0].Key, ShouldEqual, schema.KeyAge)
			So(d.Inputs[0].Whole, ShouldBeTrue)
			So(d.Inputs[0].Unit, ShouldEqual, "years")
		})
	})
}

func TestBatchItemResult_JSON(t *testing.T) {
	Convey("Given a failed batch item", t, func() {
		item := types.BatchItemResult{
			Index:  2,
			Target: "akd",
			Error:  &types.ErrorBody{Code: "missing_feature", Message: "missing", Field: "age"},
		}

		Convey("When encoding it", func() {
			b, err := json.Marshal(item)
			So(err, ShouldBeNil)

			Convey("Then no probability is emitted", func() {
				var m map[string]any
				So(json.Unmarshal(b, &m), ShouldBeNil)
				_, hasProb := m["probability"]
				So(hasProb, ShouldBeFalse)
				So(m["error"].(map[string]any)["field"], ShouldEqual, "age")
			})
		})
	})

	Convey("Given a successful batch item with a zero probability", t, func() {
		zero := 0.0
		item := types.BatchItemResult{Index: 0, Target: "aki", Probability: &zero, Display: "0.00"}

		Convey("Then the probability is still emitted", func() {
			b, err := json.Marshal(item)
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"probability":0`)
		})
	})
}
