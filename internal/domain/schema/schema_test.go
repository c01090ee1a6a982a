package schema

import (
	"errors"
	"testing"

	"github.com/okian/renalrisk/internal/domain/encoding"
	"github.com/okian/renalrisk/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSchemaLayout(t *testing.T) {
	Convey("Given the built-in schemas", t, func() {
		Convey("Then both validate", func() {
			for _, s := range All() {
				So(Validate(s), ShouldBeNil)
				So(s.Len(), ShouldEqual, Length)
			}
		})

		Convey("Then the AKI slot order is fixed", func() {
			var fields []string
			for _, slot := range AKI().Slots() {
				fields = append(fields, slot.Field)
			}
			So(fields, ShouldResemble, []string{
				KeyDiuretics, KeyHypertension, KeySerumSodium, KeyUrateLoweringTherapy, KeyALP,
				KeyUricAcid, KeyPPI, KeyBloodGlucose, KeyPPI, KeyTotalProtein,
			})
		})

		Convey("Then the AKD slot order is fixed", func() {
			var fields []string
			for _, slot := range AKD().Slots() {
				fields = append(fields, slot.Field)
			}
			So(fields, ShouldResemble, []string{
				KeyAge, KeyDiuretics, KeyAKIGrade, KeyRBC, KeySerumCalcium,
				KeyUrineSpecificGravity, KeyAntineoplasticAgents, KeyCystatinC, KeyHistoryOfSurgery, KeyHemoglobin,
			})
		})

		Convey("Then urine protein is offered but not bound", func() {
			s := AKI()
			_, ok := s.Input(KeyUrineProtein)
			So(ok, ShouldBeTrue)
			So(s.bound(KeyUrineProtein), ShouldBeFalse)
		})

		Convey("Then accessors return copies", func() {
			s := AKI()
			slots := s.Slots()
			slots[0].Field = "tampered"
			inputs := s.Inputs()
			inputs[0].Options[0] = "tampered"
			So(s.Slots()[0].Field, ShouldEqual, KeyDiuretics)
			So(s.Inputs()[0].Options[0], ShouldEqual, "NO")
		})

		Convey("Then For resolves known targets only", func() {
			s, err := For(model.TargetAKD)
			So(err, ShouldBeNil)
			So(s.Target(), ShouldEqual, model.TargetAKD)

			_, err = For(model.Target("ckd"))
			So(errors.Is(err, model.ErrUnknownTarget), ShouldBeTrue)
		})
	})
}

func TestValidate_Defects(t *testing.T) {
	Convey("Given schemas with structural defects", t, func() {
		Convey("When a slot is dropped", func() {
			s := AKI()
			s.slots = s.slots[:Length-1]
			So(errors.Is(Validate(s), ErrSchemaMismatch), ShouldBeTrue)
		})

		Convey("When an offered option has no code", func() {
			s := AKD()
			s.inputs[2].Options = append(s.inputs[2].Options, "Stage 4")
			err := Validate(s)
			So(errors.Is(err, ErrSchemaMismatch), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "Stage 4")
		})

		Convey("When an enumeration label is not offered", func() {
			s := AKI()
			s.inputs[0].Options = []string{"NO"}
			So(errors.Is(Validate(s), ErrSchemaMismatch), ShouldBeTrue)
		})

		Convey("When a slot reads a field that is not on the form", func() {
			s := AKD()
			s.slots[3].Field = "platelets"
			So(errors.Is(Validate(s), ErrSchemaMismatch), ShouldBeTrue)
		})

		Convey("When a slot rule disagrees with its input", func() {
			s := AKD()
			s.slots[2].Rule = Categorical(encoding.Flag)
			So(errors.Is(Validate(s), ErrSchemaMismatch), ShouldBeTrue)
		})

		Convey("When a rule kind is unknown", func() {
			s := AKI()
			s.inputs[1].Rule = Rule{Kind: "ordinal"}
			So(errors.Is(Validate(s), ErrSchemaMismatch), ShouldBeTrue)
		})
	})
}
