// Package logit fits binary logistic regression models for the donation
// outcome: nested predictor sets, Newton-Raphson MLE, coefficient tables,
// fit diagnostics, and probability-scale effects.
package logit

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pluzgi/chatbot-study/internal/model"
)

// Predictor column names. The constant term is implicit in every design.
const (
	PredConst        = "const"
	PredTransparency = "transparency"
	PredControl      = "control"
	PredInteraction  = "transparency_x_control"
	PredAge          = "age_ordinal"
	PredGender       = "gender_coded"
	PredEducation    = "education_ordinal"
)

// Spec names a model and its predictor set.
type Spec struct {
	Name       string
	Label      string
	Predictors []string
}

// NestedSpecs returns the five model specifications in fitting order, each
// nesting the previous main-effect structure.
func NestedSpecs() []Spec {
	return []Spec{
		{Name: "model1", Label: "Donation ~ T", Predictors: []string{PredTransparency}},
		{Name: "model2", Label: "Donation ~ C", Predictors: []string{PredControl}},
		{Name: "model3", Label: "Donation ~ T + C", Predictors: []string{PredTransparency, PredControl}},
		{Name: "model4", Label: "Donation ~ T + C + TxC", Predictors: []string{PredTransparency, PredControl, PredInteraction}},
		{Name: "model5", Label: "Donation ~ T + C + TxC + covariates", Predictors: []string{
			PredTransparency, PredControl, PredInteraction, PredAge, PredGender, PredEducation,
		}},
	}
}

var ageOrder = []string{"18-24", "25-34", "35-44", "45-54", "55-64", "65+"}

var genderCode = map[string]float64{
	"female":            1,
	"male":              0,
	"other":             0.5,
	"prefer-not-to-say": 0.5,
}

var educationOrder = []string{
	"no-formal", "primary", "secondary", "vocational", "bachelor", "master", "doctorate",
}

// Covariates holds the demographic codings used by the full model. Ordinal
// codings impute missing categories with the observed median; gender
// defaults to the 0.5 midpoint.
type Covariates struct {
	AgeOrdinal       []float64
	GenderCoded      []float64
	EducationOrdinal []float64
}

// EncodeCovariates codes age and education ordinally and gender numerically
// for the given rows.
func EncodeCovariates(rows []model.AnalysisRow) Covariates {
	cov := Covariates{
		AgeOrdinal:       ordinalWithMedianImpute(rows, ageOrder, func(r model.AnalysisRow) string { return r.Age }),
		GenderCoded:      make([]float64, len(rows)),
		EducationOrdinal: ordinalWithMedianImpute(rows, educationOrder, func(r model.AnalysisRow) string { return r.Education }),
	}
	for i, r := range rows {
		if v, ok := genderCode[r.Gender]; ok {
			cov.GenderCoded[i] = v
		} else {
			cov.GenderCoded[i] = 0.5
		}
	}
	return cov
}

func ordinalWithMedianImpute(rows []model.AnalysisRow, order []string, get func(model.AnalysisRow) string) []float64 {
	code := make(map[string]float64, len(order))
	for i, c := range order {
		code[c] = float64(i)
	}

	out := make([]float64, len(rows))
	known := make([]float64, 0, len(rows))
	missing := make([]int, 0)
	for i, r := range rows {
		if v, ok := code[get(r)]; ok {
			out[i] = v
			known = append(known, v)
		} else {
			missing = append(missing, i)
		}
	}

	med := median(known)
	for _, i := range missing {
		out[i] = med
	}
	return out
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := make([]float64, len(v))
	copy(s, v)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// Design is an outcome vector with its predictor matrix. The first column
// of X is the constant term; Names labels every column including it.
type Design struct {
	Y     []float64
	X     *mat.Dense
	Names []string
}

// BuildDesign assembles the outcome and predictor matrix for a spec. Rows
// must carry factor levels and a recorded donation decision; rows failing
// either are dropped, matching an analysis set that was filtered upstream.
func BuildDesign(rows []model.AnalysisRow, spec Spec) (*Design, error) {
	usable := make([]model.AnalysisRow, 0, len(rows))
	for _, r := range rows {
		if r.TransparencyLevel == nil || r.ControlLevel == nil || !r.HasDonation() {
			continue
		}
		usable = append(usable, r)
	}
	if len(usable) == 0 {
		return nil, eris.New("logit: no usable rows for design matrix")
	}

	cov := EncodeCovariates(usable)

	names := append([]string{PredConst}, spec.Predictors...)
	x := mat.NewDense(len(usable), len(names), nil)
	y := make([]float64, len(usable))

	for i, r := range usable {
		y[i] = float64(*r.DonationDecision)
		t := float64(*r.TransparencyLevel)
		c := float64(*r.ControlLevel)
		for j, name := range names {
			var v float64
			switch name {
			case PredConst:
				v = 1
			case PredTransparency:
				v = t
			case PredControl:
				v = c
			case PredInteraction:
				v = t * c
			case PredAge:
				v = cov.AgeOrdinal[i]
			case PredGender:
				v = cov.GenderCoded[i]
			case PredEducation:
				v = cov.EducationOrdinal[i]
			default:
				return nil, eris.Errorf("logit: unknown predictor %q", name)
			}
			x.Set(i, j, v)
		}
	}
	return &Design{Y: y, X: x, Names: names}, nil
}

// FittedModel is a converged (or flagged non-converged) logistic fit.
type FittedModel struct {
	Name         string        `json:"name"`
	Label        string        `json:"label"`
	Names        []string      `json:"predictors"`
	Coefficients []float64     `json:"coefficients"`
	StdErrors    []float64     `json:"std_errors"`
	Cov          *mat.SymDense `json:"-"`
	N            int           `json:"n"`
	DFModel      int           `json:"df_model"`
	LogLik       float64       `json:"log_likelihood"`
	LLNull       float64       `json:"ll_null"`
	AIC          float64       `json:"aic"`
	BIC          float64       `json:"bic"`
	LRChi2       float64       `json:"lr_chi2"`
	LRPValue     float64       `json:"lr_p_value"`
	Converged    bool          `json:"converged"`
	Iterations   int           `json:"iterations"`
	Fitted       []float64     `json:"-"`
}

const (
	maxIterations  = 100
	convergenceTol = 1e-8
)

// Fit estimates the model by Newton-Raphson. Standard errors come from the
// inverse observed information. A singular information matrix (typically
// complete separation or a constant predictor) is an error; hitting the
// iteration cap returns the last iterate with Converged=false.
func Fit(d *Design, spec Spec) (*FittedModel, error) {
	n, k := d.X.Dims()
	if n <= k {
		return nil, eris.Errorf("logit: %d rows cannot identify %d parameters", n, k)
	}

	beta := mat.NewVecDense(k, nil)
	grad := mat.NewVecDense(k, nil)
	info := mat.NewSymDense(k, nil)
	step := mat.NewVecDense(k, nil)
	p := make([]float64, n)

	converged := false
	iterations := 0
	for iter := 0; iter < maxIterations; iter++ {
		iterations = iter + 1
		logistic(d.X, beta, p)

		for j := 0; j < k; j++ {
			var g float64
			for i := 0; i < n; i++ {
				g += d.X.At(i, j) * (d.Y[i] - p[i])
			}
			grad.SetVec(j, g)
		}
		for a := 0; a < k; a++ {
			for b := a; b < k; b++ {
				var s float64
				for i := 0; i < n; i++ {
					w := p[i] * (1 - p[i])
					s += d.X.At(i, a) * w * d.X.At(i, b)
				}
				info.SetSym(a, b, s)
			}
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(info); !ok {
			return nil, eris.Errorf("logit: singular information matrix for %s", spec.Name)
		}
		if err := chol.SolveVecTo(step, grad); err != nil {
			return nil, eris.Wrapf(err, "logit: newton step for %s", spec.Name)
		}
		beta.AddVec(beta, step)

		if mat.Norm(step, math.Inf(1)) < convergenceTol {
			converged = true
			break
		}
	}

	logistic(d.X, beta, p)

	// Covariance is the inverse information at the final iterate.
	for a := 0; a < k; a++ {
		for b := a; b < k; b++ {
			var s float64
			for i := 0; i < n; i++ {
				w := p[i] * (1 - p[i])
				s += d.X.At(i, a) * w * d.X.At(i, b)
			}
			info.SetSym(a, b, s)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(info); !ok {
		return nil, eris.Errorf("logit: singular information matrix for %s", spec.Name)
	}
	cov := mat.NewSymDense(k, nil)
	if err := chol.InverseTo(cov); err != nil {
		return nil, eris.Wrapf(err, "logit: covariance for %s", spec.Name)
	}

	m := &FittedModel{
		Name:         spec.Name,
		Label:        spec.Label,
		Names:        d.Names,
		Coefficients: make([]float64, k),
		StdErrors:    make([]float64, k),
		Cov:          cov,
		N:            n,
		DFModel:      k - 1,
		Converged:    converged,
		Iterations:   iterations,
		Fitted:       p,
	}
	for j := 0; j < k; j++ {
		m.Coefficients[j] = beta.AtVec(j)
		m.StdErrors[j] = math.Sqrt(cov.At(j, j))
	}

	m.LogLik = logLikelihood(d.Y, p)
	m.LLNull = nullLogLikelihood(d.Y)
	m.AIC = 2*float64(k) - 2*m.LogLik
	m.BIC = float64(k)*math.Log(float64(n)) - 2*m.LogLik
	m.LRChi2 = 2 * (m.LogLik - m.LLNull)
	if m.DFModel > 0 {
		m.LRPValue = distuv.ChiSquared{K: float64(m.DFModel)}.Survival(m.LRChi2)
	} else {
		m.LRPValue = 1
	}
	return m, nil
}

// logistic fills p with sigmoid(X beta).
func logistic(x *mat.Dense, beta *mat.VecDense, p []float64) {
	n, k := x.Dims()
	for i := 0; i < n; i++ {
		var eta float64
		for j := 0; j < k; j++ {
			eta += x.At(i, j) * beta.AtVec(j)
		}
		p[i] = 1 / (1 + math.Exp(-eta))
	}
}

func logLikelihood(y, p []float64) float64 {
	var ll float64
	for i := range y {
		// Clamp away from 0/1 so separation does not produce -Inf.
		pi := math.Min(math.Max(p[i], 1e-10), 1-1e-10)
		if y[i] == 1 {
			ll += math.Log(pi)
		} else {
			ll += math.Log(1 - pi)
		}
	}
	return ll
}

// nullLogLikelihood is the intercept-only log-likelihood, which has the
// closed form n*(p*ln(p) + (1-p)*ln(1-p)) at the observed base rate.
func nullLogLikelihood(y []float64) float64 {
	n := float64(len(y))
	var ones float64
	for _, v := range y {
		ones += v
	}
	p := ones / n
	if p == 0 || p == 1 {
		return 0
	}
	return n * (p*math.Log(p) + (1-p)*math.Log(1-p))
}

// Direction labels how a predictor moves the donation odds.
type Direction string

const (
	DirectionIncreases Direction = "Increases"
	DirectionDecreases Direction = "Decreases"
	DirectionNoEffect  Direction = "No effect"
)

// Coefficient is one row of the odds-ratio table.
type Coefficient struct {
	Name      string    `json:"variable"`
	Beta      float64   `json:"coef"`
	SE        float64   `json:"se"`
	OddsRatio float64   `json:"or"`
	ORLower   float64   `json:"or_ci_lower"`
	ORUpper   float64   `json:"or_ci_upper"`
	Z         float64   `json:"z"`
	PValue    float64   `json:"p"`
	Direction Direction `json:"direction"`
}

// CoefficientTable renders the fitted coefficients on the odds-ratio scale
// with Wald z tests and 95% intervals.
func (m *FittedModel) CoefficientTable() []Coefficient {
	zcrit := distuv.UnitNormal.Quantile(0.975)
	rows := make([]Coefficient, len(m.Names))
	for j, name := range m.Names {
		b, se := m.Coefficients[j], m.StdErrors[j]
		or := math.Exp(b)
		z := b / se
		dir := DirectionNoEffect
		switch {
		case or > 1:
			dir = DirectionIncreases
		case or < 1:
			dir = DirectionDecreases
		}
		rows[j] = Coefficient{
			Name:      name,
			Beta:      b,
			SE:        se,
			OddsRatio: or,
			ORLower:   math.Exp(b - zcrit*se),
			ORUpper:   math.Exp(b + zcrit*se),
			Z:         z,
			PValue:    2 * distuv.UnitNormal.Survival(math.Abs(z)),
			Direction: dir,
		}
	}
	return rows
}

// FitSpec builds the design for a spec over rows and fits it.
func FitSpec(rows []model.AnalysisRow, spec Spec) (*FittedModel, error) {
	d, err := BuildDesign(rows, spec)
	if err != nil {
		return nil, err
	}
	return Fit(d, spec)
}
