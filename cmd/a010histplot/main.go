// Command a010histplot replays a recorded A010 fixture through the driver
// and renders an offline HTML chart of the auto-range ROI histogram and
// the resulting unit-selection trace, for tuning saturation/percentile
// parameters without a live sensor.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/jconnell11/tof-cam/internal/a010"
	"github.com/jconnell11/tof-cam/transport"
)

var (
	fixture = flag.String("fixture", "fixtures/a010.bin", "recorded raw byte stream to replay")
	frames  = flag.Int("frames", 50, "number of frames to sample")
	out     = flag.String("out", "a010_hist.html", "output HTML file")
)

func main() {
	flag.Parse()

	data, err := os.ReadFile(*fixture)
	if err != nil {
		log.Fatalf("failed to read fixture: %v", err)
	}

	cfg := a010.DefaultConfig()
	driver := a010.New(cfg)
	if err := driver.Start(newLoopPort(data)); err != nil {
		log.Fatalf("failed to start driver: %v", err)
	}
	defer driver.Done()

	unitTrace := make([]int, 0, *frames)
	var raw [a010.PixCount]byte
	for i := 0; i < *frames; i++ {
		frame := driver.Range(true)
		if frame == nil {
			log.Printf("frame %d: no data (driver stopped: %v)", i, driver.Err())
			break
		}
		unitTrace = append(unitTrace, driver.Unit())
		raw = driver.Raw()
	}

	var hist [256]int
	x0, y0 := cfg.AutoRange.ROIOriginX, cfg.AutoRange.ROIOriginY
	for dy := 0; dy < cfg.AutoRange.ROIHeight; dy++ {
		row := (y0 + dy) * a010.Width
		for dx := 0; dx < cfg.AutoRange.ROIWidth; dx++ {
			hist[raw[row+x0+dx]]++
		}
	}

	unitFloats := make([]float64, len(unitTrace))
	for i, u := range unitTrace {
		unitFloats[i] = float64(u)
	}
	unitMean, unitStdDev := stat.MeanStdDev(unitFloats, nil)
	log.Printf("unit trace: mean=%.2f stddev=%.2f over %d frames", unitMean, unitStdDev, len(unitTrace))

	if err := render(*out, unitTrace, hist, unitMean, unitStdDev); err != nil {
		log.Fatalf("failed to render chart: %v", err)
	}
	log.Printf("wrote %s", *out)
}

func render(path string, unitTrace []int, hist [256]int, unitMean, unitStdDev float64) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "A010 Unit Trace", Theme: "dark", Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Unit selection over time",
			Subtitle: fmt.Sprintf("mean=%.2f stddev=%.2f", unitMean, unitStdDev),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "unit (mm/step)", Min: 1, Max: 9}),
	)
	xAxis := make([]string, len(unitTrace))
	lineData := make([]opts.LineData, len(unitTrace))
	for i, u := range unitTrace {
		xAxis[i] = strconv.Itoa(i)
		lineData[i] = opts.LineData{Value: u}
	}
	line.SetXAxis(xAxis).AddSeries("unit", lineData)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "A010 ROI Histogram", Theme: "dark", Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Final-frame ROI raw-value histogram"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "raw value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "pixel count"}),
	)
	bins := make([]string, 256)
	barData := make([]opts.BarData, 256)
	for v := 0; v < 256; v++ {
		bins[v] = strconv.Itoa(v)
		barData[v] = opts.BarData{Value: hist[v]}
	}
	bar.SetXAxis(bins).AddSeries("count", barData)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprint(f, "<html><body>")
	if err := line.Render(f); err != nil {
		return err
	}
	if err := bar.Render(f); err != nil {
		return err
	}
	fmt.Fprint(f, "</body></html>")
	return nil
}

// loopPort replays a fixed byte stream, restarting from the beginning
// once exhausted, so a short fixture can still drive an arbitrary number
// of sampled frames.
type loopPort struct {
	mu     sync.Mutex
	data   []byte
	reader *bytes.Reader
}

func newLoopPort(data []byte) *loopPort {
	return &loopPort{data: data, reader: bytes.NewReader(data)}
}

func (p *loopPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, err := p.reader.Read(b)
	if err == io.EOF {
		p.reader = bytes.NewReader(p.data)
		if n == 0 {
			n, err = p.reader.Read(b)
		} else {
			err = nil
		}
	}
	return n, err
}

func (p *loopPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *loopPort) Close() error                { return nil }

var _ transport.Port = (*loopPort)(nil)
