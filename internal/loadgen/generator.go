package loadgen

import (
	"crypto/rand"
	"math"
	"math/big"

	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/internal/domain/schema"
)

const randomFloatDivisor = 1000000

// numericRange bounds generated values per field; the ranges span typical
// inpatient laboratory results.
var numericRange = map[string][2]float64{ //nolint:gochecknoglobals // static generation table
	schema.KeySerumSodium:          {125, 155},
	schema.KeyALP:                  {30, 300},
	schema.KeyUricAcid:             {150, 800},
	schema.KeyBloodGlucose:         {3.5, 20},
	schema.KeyTotalProtein:         {45, 90},
	schema.KeyAge:                  {18, 95},
	schema.KeyRBC:                  {2.5, 6.0},
	schema.KeySerumCalcium:         {1.8, 2.8},
	schema.KeyUrineSpecificGravity: {1.000, 1.035},
	schema.KeyCystatinC:            {0.5, 5.0},
	schema.KeyHemoglobin:           {70, 170},
}

// Sample is one generated observation.
type Sample struct {
	ID          string            `json:"id"`
	Target      model.Target      `json:"target"`
	Observation model.Observation `json:"observation"`
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomIndex(n int) int {
	i, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(i.Int64())
}

// Generate builds a valid observation for s.
func Generate(s schema.Schema) model.Observation {
	obs := model.Observation{}
	for _, f := range s.Inputs() {
		switch f.Rule.Kind {
		case schema.KindCategorical:
			obs[f.Key] = f.Options[randomIndex(len(f.Options))]
		case schema.KindNumeric:
			r, ok := numericRange[f.Key]
			if !ok {
				r = [2]float64{0, 100}
			}
			v := r[0] + getRandomFloat()*(r[1]-r[0])
			if f.Rule.WholeNumber {
				v = math.Round(v)
			} else {
				v = math.Round(v*1000) / 1000
			}
			obs[f.Key] = v
		}
	}
	return obs
}
