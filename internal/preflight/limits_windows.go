//go:build windows

package preflight

// checkFileDescriptors is a no-op on Windows, which has no fd rlimit.
func checkFileDescriptors() Check {
	return Check{
		Name:    "file_descriptors",
		Passed:  true,
		Warning: true,
		Message: "not applicable on Windows",
	}
}

// checkProcessLimit is a no-op on Windows.
func checkProcessLimit() Check {
	return Check{
		Name:    "process_limit",
		Passed:  true,
		Warning: true,
		Message: "not applicable on Windows",
	}
}
