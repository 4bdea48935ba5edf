package rule

import "strconv"

// DefaultCapabilityPrefix is prepended to the membership type ID to build a
// capability name.
const DefaultCapabilityPrefix = "civimember_"

// CapabilityName returns the capability granted for a membership type.
func CapabilityName(prefix string, typeID int) string {
	return prefix + strconv.Itoa(typeID)
}

// StatusCapabilityName returns the auxiliary capability recording the exact
// status a member holds for a membership type.
func StatusCapabilityName(prefix string, typeID, statusID int) string {
	return CapabilityName(prefix, typeID) + "_" + strconv.Itoa(statusID)
}
