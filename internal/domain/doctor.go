package domain

type DoctorProfile struct {
	FirstName           string
	LastName            string
	Email               string
	LicenseNumber       string
	Specialization      string
	YearsOfExperience   int
	HospitalAffiliation string
	Phone               string
	IsVerified          bool
}

func (p DoctorProfile) DisplayName() string {
	return "Dr. " + User{FirstName: p.FirstName, LastName: p.LastName}.DisplayName()
}

// Statistics carries both the patient and doctor variants of /statistics/; fields of the other role stay zero.
type Statistics struct {
	TotalRecords        int
	TotalPredictions    int
	ApprovedPredictions int
	ApprovalRate        float64

	TotalPatients     int
	RecentPredictions int
	DoctorAnalyses    int
}
