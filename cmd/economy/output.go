package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/napolitain/rts-economy/internal/economy"
	"github.com/napolitain/rts-economy/internal/models"
	"github.com/napolitain/rts-economy/internal/world"
)

func printDecision(d economy.Decision) {
	fmt.Printf("tick %4d:", d.Tick)
	for _, c := range d.Commands {
		fmt.Printf(" %s(%d→%d)", c.Kind, c.Unit, c.Target)
	}
	for _, p := range d.Plans {
		fmt.Printf(" +%s[%s]", shortTemplate(p.Template), p.Queue)
	}
	fmt.Println()
}

func printRoster(m *economy.Manager) {
	headerColor := color.New(color.FgCyan, color.Bold)
	headerColor.Printf("👷 Workforce at tick %d\n", m.Tick())

	type key struct {
		role    models.Role
		subrole models.Subrole
		gather  models.ResourceType
	}
	counts := make(map[key]int)
	var order []key
	for _, wk := range m.Workers() {
		k := key{wk.Role, wk.Subrole, wk.GatherType}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Role", "Subrole", "Resource", "Units"}),
	)
	for _, k := range order {
		_ = table.Append([]string{string(k.role), dash(string(k.subrole)), dash(string(k.gather)), fmt.Sprintf("%d", counts[k])})
	}
	_ = table.Render()

	t := m.Targets()
	fmt.Printf("Targets: %d workers, %d builders, %d fields\n\n", t.Workers, t.Builders, t.Fields)
}

func printStructures(s *world.State, buildWork int) {
	headerColor := color.New(color.FgCyan, color.Bold)
	headerColor.Println("🏛️  Structures")

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Template", "Position", "State"}),
	)
	for _, st := range s.Structures {
		state := "built"
		if st.Foundation {
			state = fmt.Sprintf("foundation %d%%", st.BuildProgress*100/max(1, buildWork))
		}
		_ = table.Append([]string{
			fmt.Sprintf("%d", st.ID),
			shortTemplate(st.Template),
			fmt.Sprintf("(%.0f, %.0f)", st.Position.X, st.Position.Z),
			state,
		})
	}
	_ = table.Render()
	fmt.Println()
}

func printStockpile(s *world.State) {
	headerColor := color.New(color.FgCyan, color.Bold)
	headerColor.Println("📦 Gathered")

	supplies := s.ResourceSupplies()
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Resource", "Gathered", "Supplies left", "Amount left"}),
	)
	for _, rt := range models.AllResourceTypes() {
		left := 0.0
		for _, sup := range supplies[rt] {
			left += sup.Amount
		}
		_ = table.Append([]string{
			string(rt),
			humanize.Commaf(s.Stockpile[rt]),
			humanize.Comma(int64(len(supplies[rt]))),
			humanize.Commaf(left),
		})
	}
	_ = table.Render()
	fmt.Println()
}

func printQueues(q models.Queues) {
	headerColor := color.New(color.FgCyan, color.Bold)
	headerColor.Println("📋 Pending plans")

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Queue", "Pending", "Next"}),
	)
	for _, name := range models.AllQueueNames() {
		pq, ok := q.Get(name).(*models.PlanQueue)
		if !ok {
			continue
		}
		next := "-"
		if len(pq.Items) > 0 {
			next = shortTemplate(pq.Items[0].Template)
		}
		_ = table.Append([]string{string(name), fmt.Sprintf("%d", pq.TotalLength()), next})
	}
	_ = table.Render()
}

// shortTemplate drops the template directory
func shortTemplate(t string) string {
	if i := strings.LastIndexByte(t, '/'); i >= 0 {
		return t[i+1:]
	}
	return t
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
