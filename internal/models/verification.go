package models

// Service names used in verification outcomes.
const (
	ServiceMySQL  = "MySQL"
	ServiceApache = "Apache"
)

// VerificationOutcome is the result of one post-provision check.
type VerificationOutcome struct {
	ServiceName string
	Succeeded   bool
	Skipped     bool
	ErrorLines  []string
}

// VerificationReport aggregates the outcomes of a verification pass.
type VerificationReport struct {
	Outcomes []VerificationOutcome
	Skipped  bool
}

// AnyFailed reports whether a check ran and failed.
func (r *VerificationReport) AnyFailed() bool {
	if r == nil {
		return false
	}
	for _, o := range r.Outcomes {
		if !o.Skipped && !o.Succeeded {
			return true
		}
	}
	return false
}

// Outcome returns the outcome recorded for a service, if any.
func (r *VerificationReport) Outcome(service string) (VerificationOutcome, bool) {
	if r == nil {
		return VerificationOutcome{}, false
	}
	for _, o := range r.Outcomes {
		if o.ServiceName == service {
			return o, true
		}
	}
	return VerificationOutcome{}, false
}

// ProvisionSummary holds everything reported at the end of a run.
type ProvisionSummary struct {
	Target         ServerTarget
	Admin          AdminIdentity
	Credentials    ServiceCredentials
	DatabaseUser   string
	RestartCommand string
	FrontendURL    string
	Report         *VerificationReport
	Cancelled      bool
}

// Completed reports whether the run finished without failed checks.
func (s *ProvisionSummary) Completed() bool {
	return !s.Cancelled && !s.Report.AnyFailed()
}
