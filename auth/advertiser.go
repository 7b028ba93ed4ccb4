package auth

// externalMechanisms are offered, in order, to principals backed by an external identity provider
var externalMechanisms = []string{MechanismGSSAPI, MechanismPlain}

// Advertise returns the mechanisms to offer a principal with the given credentials.
// Candidates keep their fixed priority order and are filtered by membership in enabled.
// The result is never nil; an empty slice means nothing is offered.
func Advertise(creds Credentials, enabled MechanismSet) []string {
	mechanisms := make([]string, 0, 2)

	switch c := creds.(type) {
	case ExternalCredentials:
		mechanisms = appendExternal(mechanisms, enabled)
	case *ExternalCredentials:
		if c != nil {
			mechanisms = appendExternal(mechanisms, enabled)
		}
	case LocalCredentials:
		mechanisms = appendSCRAM(mechanisms, c, enabled)
	case *LocalCredentials:
		if c != nil {
			mechanisms = appendSCRAM(mechanisms, *c, enabled)
		}
	}

	return mechanisms
}

func appendExternal(mechanisms []string, enabled MechanismSet) []string {
	for _, mechanism := range externalMechanisms {
		if enabled.Contains(mechanism) {
			mechanisms = append(mechanisms, mechanism)
		}
	}
	return mechanisms
}

func appendSCRAM(mechanisms []string, creds LocalCredentials, enabled MechanismSet) []string {
	for _, variant := range scramVariants {
		if creds.HasValidSCRAM(variant) && enabled.Contains(variant.Mechanism()) {
			mechanisms = append(mechanisms, variant.Mechanism())
		}
	}
	return mechanisms
}
