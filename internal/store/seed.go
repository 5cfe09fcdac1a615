package store

import (
	"time"

	"compliancecore/pkg/domain"
)

var catalogDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// seedControls returns a fresh copy of the starter catalog used when no
// snapshot exists yet. Callers own the returned slice.
func seedControls() []domain.Control {
	catalog := []domain.Control{
		{
			ID:          "1",
			ControlID:   "AC-2",
			Title:       "Account Management",
			Description: "Manage information system accounts, including establishing, activating, modifying, reviewing, disabling, and removing accounts.",
			Family:      "Access Control",
			RiskRating:  domain.RiskHigh,
		},
		{
			ID:          "2",
			ControlID:   "AC-3",
			Title:       "Access Enforcement",
			Description: "Enforce approved authorizations for logical access to information and system resources.",
			Family:      "Access Control",
			RiskRating:  domain.RiskHigh,
		},
		{
			ID:          "3",
			ControlID:   "AU-2",
			Title:       "Event Logging",
			Description: "Identify the types of events that the system is capable of logging in support of the audit function.",
			Family:      "Audit and Accountability",
			RiskRating:  domain.RiskMedium,
		},
		{
			ID:          "4",
			ControlID:   "AU-6",
			Title:       "Audit Record Review, Analysis, and Reporting",
			Description: "Review and analyze system audit records for indications of inappropriate or unusual activity.",
			Family:      "Audit and Accountability",
			RiskRating:  domain.RiskMedium,
		},
		{
			ID:          "5",
			ControlID:   "CM-2",
			Title:       "Baseline Configuration",
			Description: "Develop, document, and maintain a current baseline configuration of the system.",
			Family:      "Configuration Management",
			RiskRating:  domain.RiskMedium,
		},
		{
			ID:          "6",
			ControlID:   "CP-9",
			Title:       "System Backup",
			Description: "Conduct backups of user-level and system-level information contained in the system.",
			Family:      "Contingency Planning",
			RiskRating:  domain.RiskHigh,
		},
		{
			ID:          "7",
			ControlID:   "IA-2",
			Title:       "Identification and Authentication",
			Description: "Uniquely identify and authenticate organizational users and associate that identity with processes acting on their behalf.",
			Family:      "Identification and Authentication",
			RiskRating:  domain.RiskCritical,
		},
		{
			ID:          "8",
			ControlID:   "IR-4",
			Title:       "Incident Handling",
			Description: "Implement an incident handling capability that includes preparation, detection and analysis, containment, eradication, and recovery.",
			Family:      "Incident Response",
			RiskRating:  domain.RiskHigh,
		},
		{
			ID:          "9",
			ControlID:   "RA-5",
			Title:       "Vulnerability Monitoring and Scanning",
			Description: "Monitor and scan for vulnerabilities in the system and hosted applications.",
			Family:      "Risk Assessment",
			RiskRating:  domain.RiskHigh,
		},
		{
			ID:          "10",
			ControlID:   "SC-7",
			Title:       "Boundary Protection",
			Description: "Monitor and control communications at the external managed interfaces and key internal managed interfaces of the system.",
			Family:      "System and Communications Protection",
			RiskRating:  domain.RiskCritical,
		},
		{
			ID:          "11",
			ControlID:   "SC-13",
			Title:       "Cryptographic Protection",
			Description: "Determine and implement the cryptography required for each specified cryptographic use.",
			Family:      "System and Communications Protection",
			RiskRating:  domain.RiskMedium,
		},
		{
			ID:          "12",
			ControlID:   "SI-2",
			Title:       "Flaw Remediation",
			Description: "Identify, report, and correct system flaws in a timely manner.",
			Family:      "System and Information Integrity",
			RiskRating:  domain.RiskHigh,
		},
	}
	for i := range catalog {
		catalog[i].Status = domain.StatusNotAssessed
		catalog[i].LastUpdated = catalogDate
		catalog[i].Evidence = []domain.Evidence{}
	}
	return catalog
}

// SeedUsers returns a fresh copy of the starter user list.
func SeedUsers() []domain.User {
	avatars := []string{
		"https://i.pravatar.cc/150?img=1",
		"https://i.pravatar.cc/150?img=2",
		"https://i.pravatar.cc/150?img=3",
	}
	return []domain.User{
		{ID: "1", Name: "Admin User", Email: "admin@example.com", Role: domain.RoleAdmin, Avatar: &avatars[0]},
		{ID: "2", Name: "Contributor User", Email: "contributor@example.com", Role: domain.RoleContributor, Avatar: &avatars[1]},
		{ID: "3", Name: "Viewer User", Email: "viewer@example.com", Role: domain.RoleViewer, Avatar: &avatars[2]},
	}
}
