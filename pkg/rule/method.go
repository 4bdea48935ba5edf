package rule

//go:generate go run github.com/dmarkham/enumer -type Method -trimprefix Method -transform lower -yaml -json -output method.gen.go

// Method selects how a rule is enforced on a user account.
type Method int

const (
	MethodRole Method = iota
	MethodCapability
)
