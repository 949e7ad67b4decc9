// Package bench compares concurrent and sequential reductions over a list of
// job vacancies.
package bench

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors returned when a vacancy field cannot be parsed.
var (
	ErrParseSalary     = errors.New("cannot parse salary")
	ErrParseExperience = errors.New("cannot parse work experience")
	ErrParseEducation  = errors.New("cannot parse education")
)

// Education is the minimum education a vacancy asks for. Levels are ordered.
type Education int

// Known education levels.
const (
	EducationNone Education = iota
	EducationSchool
	EducationUniversity
)

// ParseEducation converts a case-insensitive name into an Education. The
// empty string means no requirement.
func ParseEducation(s string) (Education, error) {
	switch strings.ToLower(s) {
	case "":
		return EducationNone, nil
	case "school":
		return EducationSchool, nil
	case "university":
		return EducationUniversity, nil
	default:
		return EducationNone, fmt.Errorf("%w: %q", ErrParseEducation, s)
	}
}

func (e Education) String() string {
	switch e {
	case EducationSchool:
		return "school"
	case EducationUniversity:
		return "university"
	default:
		return ""
	}
}

// WorkerSpecialization is the specialization a vacancy asks for.
type WorkerSpecialization struct {
	Name            string `json:"specialization_name"`
	ExperienceYears uint16 `json:"work_exp_years"`
}

// WorkerRequirements lists what a vacancy asks of a worker.
type WorkerRequirements struct {
	Specialization *WorkerSpecialization `json:"specialization,omitempty"`
	Education      Education             `json:"education"`
}

// Vacancy is a job offer.
type Vacancy struct {
	CompanyName    string             `json:"company_name"`
	Specialization string             `json:"specialization"`
	Conditions     string             `json:"conditions"`
	Salary         uint64             `json:"salary"`
	Requirements   WorkerRequirements `json:"worker_requirements"`
}

// NewVacancy parses the textual fields of a vacancy. An empty
// workerSpecialization means the vacancy asks for no specialization. The
// experience is parsed either way.
func NewVacancy(
	companyName, specialization, conditions, salary string,
	workerSpecialization, experienceYears, education string,
) (Vacancy, error) {
	years, err := strconv.ParseUint(experienceYears, 10, 16)
	if err != nil {
		return Vacancy{}, fmt.Errorf("%w: %q", ErrParseExperience, experienceYears)
	}

	amount, err := strconv.ParseUint(salary, 10, 64)
	if err != nil {
		return Vacancy{}, fmt.Errorf("%w: %q", ErrParseSalary, salary)
	}

	edu, err := ParseEducation(education)
	if err != nil {
		return Vacancy{}, err
	}

	v := Vacancy{
		CompanyName:    companyName,
		Specialization: specialization,
		Conditions:     conditions,
		Salary:         amount,
		Requirements:   WorkerRequirements{Education: edu},
	}

	if workerSpecialization != "" {
		v.Requirements.Specialization = &WorkerSpecialization{
			Name:            workerSpecialization,
			ExperienceYears: uint16(years),
		}
	}

	return v, nil
}

func (v Vacancy) String() string {
	return fmt.Sprintf("%s: %s(%s) - %d$ %s",
		v.CompanyName, v.Specialization, v.Conditions, v.Salary,
		v.Requirements.Education)
}
