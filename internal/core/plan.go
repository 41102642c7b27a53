package core

import (
	"fmt"
	"strings"
)

// Plan is a day-by-day study plan.
type Plan struct {
	Subject string    `json:"subject"`
	Days    []PlanDay `json:"days"`
}

// PlanDay is one day of a study plan.
type PlanDay struct {
	Day   int      `json:"day"`
	Focus string   `json:"focus"`
	Tasks []string `json:"tasks"`
}

// planPhases is the rotation used when no generated plan is available. The
// phases repeat across the requested span, with the last day always reserved
// for a full review.
var planPhases = []struct {
	focus string
	tasks []string
}{
	{
		focus: "Fundamentos",
		tasks: []string{
			"Ler o material base de %s",
			"Anotar os conceitos principais",
			"Listar as dúvidas que surgirem",
		},
	},
	{
		focus: "Prática",
		tasks: []string{
			"Resolver exercícios de %s",
			"Revisar os erros e entender o porquê",
		},
	},
	{
		focus: "Aprofundamento",
		tasks: []string{
			"Estudar os tópicos mais difíceis de %s",
			"Fazer um resumo com suas palavras",
		},
	},
	{
		focus: "Fixação",
		tasks: []string{
			"Refazer os exercícios que errou",
			"Explicar %s em voz alta como se ensinasse alguém",
		},
	},
}

// FallbackPlan builds a deterministic local study plan. It is used when the
// generated plan is unavailable so the caller always gets something usable.
func FallbackPlan(subject string, days int) Plan {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "o conteúdo"
	}
	if days < 1 {
		days = 1
	}
	if days > 60 {
		days = 60
	}

	plan := Plan{Subject: subject, Days: make([]PlanDay, 0, days)}
	for day := 1; day <= days; day++ {
		if day == days && days > 1 {
			plan.Days = append(plan.Days, PlanDay{
				Day:   day,
				Focus: "Revisão geral",
				Tasks: []string{
					fmt.Sprintf("Revisar todos os tópicos de %s", subject),
					"Fazer um simulado ou autoavaliação",
				},
			})
			continue
		}

		phase := planPhases[(day-1)%len(planPhases)]
		tasks := make([]string, 0, len(phase.tasks))
		for _, task := range phase.tasks {
			if strings.Contains(task, "%s") {
				tasks = append(tasks, fmt.Sprintf(task, subject))
			} else {
				tasks = append(tasks, task)
			}
		}
		plan.Days = append(plan.Days, PlanDay{Day: day, Focus: phase.focus, Tasks: tasks})
	}

	return plan
}
