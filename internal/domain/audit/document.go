package audit

// ReportFilename suggests a download name from the result identifier.
func ReportFilename(identifier string) string {
	if identifier == "" {
		return "audit-report-contract.pdf"
	}
	r := []rune(identifier)
	if len(r) > 10 {
		r = r[:10]
	}
	return "audit-report-" + string(r) + ".pdf"
}
