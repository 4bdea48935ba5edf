package rule

//go:generate go run github.com/dmarkham/enumer -type Flag -trimprefix Flag -transform lower -yaml -json -output flag.gen.go

// Flag is the binary classification of a membership status under a rule.
type Flag int

const (
	FlagCurrent Flag = iota
	FlagExpired
)
