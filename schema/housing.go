package schema

// Housing feature names, in the column order the model is trained on.
const (
	CRIM    = "CRIM"
	ZN      = "ZN"
	INDUS   = "INDUS"
	CHAS    = "CHAS"
	NOX     = "NOX"
	RM      = "RM"
	AGE     = "AGE"
	DIS     = "DIS"
	RAD     = "RAD"
	TAX     = "TAX"
	PTRATIO = "PTRATIO"
	B       = "B"
	LSTAT   = "LSTAT"

	MEDV = "MEDV"
)

var housingFeatures = []Feature{
	{CRIM, "Crime rate", "Per-capita crime rate by town", "0.1", "any"},
	{ZN, "Residential zoning", "Proportion of residential land zoned for lots over 25,000 sq.ft.", "0", "any"},
	{INDUS, "Industrial acreage", "Proportion of non-retail business acres per town", "8", "any"},
	{CHAS, "Charles River", "Charles River dummy variable (1 if tract bounds river, 0 otherwise)", "0", "1"},
	{NOX, "NOx concentration", "Nitric oxides concentration (parts per 10 million)", "0.5", "any"},
	{RM, "Rooms", "Average number of rooms per dwelling", "6", "any"},
	{AGE, "Building age", "Proportion of owner-occupied units built prior to 1940", "65", "any"},
	{DIS, "Distance to employment", "Weighted distances to five Boston employment centres", "4", "any"},
	{RAD, "Highway access", "Index of accessibility to radial highways", "4", "1"},
	{TAX, "Property tax", "Full-value property-tax rate per $10,000", "300", "any"},
	{PTRATIO, "Pupil-teacher ratio", "Pupil-teacher ratio by town", "18", "any"},
	{B, "B index", "1000(Bk - 0.63)^2 where Bk is the proportion of Black residents by town", "390", "any"},
	{LSTAT, "Lower status population", "Percentage of lower status of the population", "12", "any"},
}

var housingTarget = Target{
	Name:        MEDV,
	Description: "Median value of owner-occupied homes",
	Units:       "thousand USD",
}

var housing = mustHousing()

func mustHousing() *Schema {
	s, err := New(housingFeatures, housingTarget)
	if err != nil {
		panic(err)
	}
	return s
}

// Housing returns the 13-feature housing price schema.
func Housing() *Schema { return housing }

// ExampleInput is a representative request payload for the housing schema.
func ExampleInput() map[string]float64 {
	return map[string]float64{
		CRIM: 0.1, ZN: 0, INDUS: 8, CHAS: 0, NOX: 0.5, RM: 6, AGE: 65,
		DIS: 4, RAD: 4, TAX: 300, PTRATIO: 18, B: 390, LSTAT: 12,
	}
}
