package email

const (
	subjectSLAAlertFmt = "Alerte SLA %s sur une réclamation"
	subjectEscalation  = "Réclamation escaladée"
	subjectAssignment  = "Nouvelle réclamation assignée"
)
