package domain

// Status is the result of enriching a single record.
type Status string

const (
	StatusUpdated   Status = "updated"
	StatusUnchanged Status = "unchanged" // lookup succeeded with the value already stored
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// SkipReason explains why a record was left untouched without an error.
type SkipReason string

const (
	SkipHasValue      SkipReason = "has_value"
	SkipNoCountryCode SkipReason = "no_country_code"
	SkipNotFound      SkipReason = "not_found"
	SkipNoData        SkipReason = "no_data"
)

// Outcome records what happened to one record during an enrichment pass.
type Outcome struct {
	City    string
	Country string
	Field   string
	Status  Status
	Reason  SkipReason
	Err     error
}

// Policy controls which records are looked up.
type Policy string

const (
	// PolicyFillMissing looks up only records whose target field is absent.
	PolicyFillMissing Policy = "fill-missing"
	// PolicyAlways looks up every record.
	PolicyAlways Policy = "always"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PolicyFillMissing || p == PolicyAlways
}

func newOutcome(c City, field string) Outcome {
	return Outcome{City: c.Name, Country: c.Country, Field: field}
}

func (o Outcome) skipped(reason SkipReason) Outcome {
	o.Status = StatusSkipped
	o.Reason = reason
	return o
}

func (o Outcome) failed(err error) Outcome {
	o.Status = StatusFailed
	o.Err = err
	return o
}
