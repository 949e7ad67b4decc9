package bench

import (
	"strconv"

	"github.com/jaswdr/faker"
)

var educations = []string{"", "school", "university"}

// Generator creates random vacancies.
type Generator struct {
	faker faker.Faker
}

// NewGenerator creates a generator backed by f.
func NewGenerator(f faker.Faker) *Generator {
	return &Generator{faker: f}
}

// Generate creates n vacancies with salaries in [0, 10000).
func (g *Generator) Generate(n int) []Vacancy {
	vacancies := make([]Vacancy, 0, n)

	for i := 0; i < n; i++ {
		v, err := NewVacancy(
			g.faker.Company().Name(),
			g.faker.Company().JobTitle(),
			g.faker.Lorem().Sentence(4),
			strconv.Itoa(g.faker.IntBetween(0, 9999)),
			"IT",
			strconv.Itoa(g.faker.IntBetween(0, 65535)),
			g.faker.RandomStringElement(educations),
		)
		if err != nil {
			panic(err)
		}

		vacancies = append(vacancies, v)
	}

	return vacancies
}
