package connmgr

const version = "1.0.0"

// Version returns the semantic version of the connmgr module.
func Version() string {
	return version
}
