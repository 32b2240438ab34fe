package domain

// GenericCapabilities is the fallback set used when the registry has no
// entry for a detected ecosystem: common ignore rules and thresholds
// only, no tool invocations.
func GenericCapabilities() CapabilitySet {
	return CapabilitySet{
		Ecosystem: EcosystemUnknown,
		IgnorePatterns: []string{
			".env",
			"*.log",
			".DS_Store",
		},
		LargeFileBytes: 5 * 1024 * 1024,
	}
}
