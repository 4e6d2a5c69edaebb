package render_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"sigs.k8s.io/yaml"

	"github.com/sefcom/clusterutils/pkg/kubernetes"
	"github.com/sefcom/clusterutils/pkg/render"
	"github.com/sefcom/clusterutils/pkg/utilization"
)

func sampleReport(metricsAvailable bool) *utilization.Report {
	const core = int64(1_000_000_000)
	const gib = int64(1024 * 1024 * 1024)
	snapshot := &kubernetes.Snapshot{
		Resources: []kubernetes.PodResources{
			{Namespace: "kube-system", Pod: "coredns", CPURequest: core / 10, CPULimit: 0, MemRequest: 70 * 1024 * 1024, MemLimit: 170 * 1024 * 1024},
			{Namespace: "web", Pod: "frontend", CPURequest: 2 * core, CPULimit: 4 * core, MemRequest: 2 * gib, MemLimit: 4 * gib},
		},
		Usage: []kubernetes.PodUsage{
			{Namespace: "web", Pod: "frontend", CPU: core + core/2, Memory: gib},
		},
		Capacity:         kubernetes.Capacity{CPU: 8 * core, Memory: 32 * gib, Nodes: 2},
		MetricsAvailable: metricsAvailable,
	}
	return utilization.BuildReport(snapshot, utilization.Options{})
}

var _ = Describe("Render", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	Describe("table", func() {
		It("should print headers, namespaces and summary rows", func() {
			err := render.Render(buf, sampleReport(true), render.FormatTable, render.Options{Color: render.ColorNever})
			Expect(err).NotTo(HaveOccurred())

			out := buf.String()
			Expect(out).To(ContainSubstring("Namespace"))
			Expect(out).To(ContainSubstring("CPU Request"))
			Expect(out).To(ContainSubstring("Mem Usage"))
			Expect(out).To(ContainSubstring("kube-system"))
			Expect(out).To(ContainSubstring("100.00 mCPU"))
			Expect(out).To(ContainSubstring("1.50 CPU"))
			Expect(out).To(ContainSubstring("Total Used"))
			Expect(out).To(ContainSubstring("Capacity"))
			Expect(out).To(ContainSubstring("8.00 CPU"))
			Expect(out).To(ContainSubstring("32.00 GB"))
			Expect(out).NotTo(ContainSubstring("\x1b["))
			Expect(out).NotTo(ContainSubstring(render.MetricsUnavailableNote))
		})

		It("should list rows in report order", func() {
			Expect(render.Render(buf, sampleReport(true), render.FormatTable, render.Options{Color: render.ColorNever})).To(Succeed())

			out := buf.String()
			Expect(strings.Index(out, "kube-system")).To(BeNumerically("<", strings.Index(out, "web")))
			Expect(strings.Index(out, "Total Used")).To(BeNumerically("<", strings.Index(out, "Capacity")))
		})

		It("should not leave trailing spaces on plain lines", func() {
			Expect(render.Render(buf, sampleReport(true), render.FormatTable, render.Options{Color: render.ColorNever})).To(Succeed())

			for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
				Expect(line).NotTo(HaveSuffix(" "), "line %q", line)
			}
		})

		It("should add a note when metrics are unavailable", func() {
			Expect(render.Render(buf, sampleReport(false), render.FormatTable, render.Options{Color: render.ColorNever})).To(Succeed())
			Expect(buf.String()).To(ContainSubstring(render.MetricsUnavailableNote))
		})

		It("should emit ANSI styling when color is forced", func() {
			Expect(render.Render(buf, sampleReport(true), render.FormatTable, render.Options{Color: render.ColorAlways})).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("\x1b["))
			Expect(buf.String()).To(ContainSubstring("╭"))
		})
	})

	Describe("csv", func() {
		It("should write raw values without a header", func() {
			Expect(render.Render(buf, sampleReport(true), render.FormatCSV, render.Options{})).To(Succeed())

			records, err := csv.NewReader(buf).ReadAll()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(4))
			Expect(records[0][0]).To(Equal("kube-system"))
			Expect(records[0][1]).To(Equal("100000000"))
			Expect(records[1]).To(HaveLen(len(render.Headers)))
			Expect(records[1][6]).To(Equal("18.75"))
			Expect(records[3][0]).To(Equal("Capacity"))
			Expect(records[3][2]).To(Equal("100"))
		})

		It("should write a header when asked", func() {
			Expect(render.Render(buf, sampleReport(true), render.FormatCSV, render.Options{Header: true})).To(Succeed())

			records, err := csv.NewReader(buf).ReadAll()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(5))
			Expect(records[0][0]).To(Equal("namespace"))
		})
	})

	Describe("json", func() {
		It("should round the report through encoding/json", func() {
			Expect(render.Render(buf, sampleReport(true), render.FormatJSON, render.Options{})).To(Succeed())

			var decoded utilization.Report
			Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
			Expect(decoded.Rows).To(HaveLen(4))
			Expect(decoded.Capacity.Nodes).To(Equal(2))
			Expect(decoded.MetricsAvailable).To(BeTrue())
		})
	})

	Describe("yaml", func() {
		It("should use the JSON field names", func() {
			Expect(render.Render(buf, sampleReport(true), render.FormatYAML, render.Options{})).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("metricsAvailable: true"))

			var decoded utilization.Report
			Expect(yaml.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
			Expect(decoded.Rows[1].Name).To(Equal("web"))
		})
	})

	It("should reject unknown formats", func() {
		err := render.Render(buf, sampleReport(true), render.Format("xml"), render.Options{})
		Expect(err).To(HaveOccurred())
	})
})
