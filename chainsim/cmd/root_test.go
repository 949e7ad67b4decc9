package cmd

import (
	"bytes"
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/chainsim/bench"
	"github.com/sarchlab/chainsim/config"
	"github.com/sarchlab/chainsim/sim/simulation"
)

func execute(args ...string) (string, error) {
	out := &bytes.Buffer{}

	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})

	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

var _ = Describe("Commands", func() {
	quick := []string{
		"--log-level", "error",
		"--seed", "3",
		"--processes", "20",
		"--time-unit", "10us",
	}

	It("should print the occupancy report", func() {
		out, err := execute(append([]string{"run"}, quick...)...)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("average chain count: "))
		Expect(out).To(ContainSubstring("peak chain count: "))
		Expect(out).To(ContainSubstring("serviced: 20/20"))
	})

	It("should print the result as JSON", func() {
		args := append([]string{"run", "--json", "--buffer-size", "2",
			"--drain-order", "lifo", "--arrival-policy", "head"}, quick...)

		out, err := execute(args...)
		Expect(err).NotTo(HaveOccurred())

		var result simulation.Result
		Expect(json.Unmarshal([]byte(out), &result)).To(Succeed())
		Expect(result.Serviced).To(Equal(uint64(20)))
		Expect(result.Report.ProcessCount).To(Equal(uint64(20)))
		Expect(result.RunID).NotTo(BeEmpty())
	})

	It("should run with the monitor enabled", func() {
		out, err := execute(append([]string{"run", "--monitor"}, quick...)...)

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("peak chain count"))
	})

	It("should reject an invalid configuration", func() {
		_, err := execute(append([]string{"run", "--buffer-size", "0"}, quick...)...)

		Expect(err).To(MatchError(config.ErrInvalidConfig))
	})

	It("should reject a missing configuration file", func() {
		_, err := execute("run", "--config", "/nonexistent/chainsim.yaml")

		Expect(err).To(HaveOccurred())
	})

	It("should compare salary reductions", func() {
		out, err := execute("bench", "--log-level", "error", "--seed", "5",
			"--elements", "30", "--workers", "3", "--json")
		Expect(err).NotTo(HaveOccurred())

		var c bench.Comparison
		Expect(json.Unmarshal([]byte(out), &c)).To(Succeed())
		Expect(c.Elements).To(Equal(30))
		Expect(c.Workers).To(Equal(3))
		Expect(c.MaxSalary).To(BeNumerically(">=", c.AverageSalary))
	})

	It("should print the salary table", func() {
		out, err := execute("bench", "--log-level", "error")

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Concurrent\tSequential"))
	})
})
