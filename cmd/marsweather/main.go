package main

import (
	"log"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/marsweather/internal/metrics"
	"github.com/lox/marsweather/internal/render"
)

type Globals struct {
	EnvFile     kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Load environment variables from this file if it exists.'"`
	Input       string                   `help:"Path to the weather CSV." default:"data/mars-weather.csv" env:"MARSWEATHER_INPUT" type:"path"`
	MetricsFile string                   `help:"Write Prometheus metrics in textfile format here on exit." env:"MARSWEATHER_METRICS_FILE" type:"path"`
}

type CLI struct {
	Globals

	Render RenderCmd `cmd:"" default:"1" help:"Render the chart set from the input CSV (default)."`
	Export ExportCmd `cmd:"" help:"Write the derived views to a spreadsheet and optionally SQLite."`
	Fetch  FetchCmd  `cmd:"" help:"Download the dataset to the input path."`
	Watch  WatchCmd  `cmd:"" help:"Render, then render again whenever the input changes."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("marsweather"),
		kong.Description("Interactive charts from Curiosity REMS Mars weather records."),
		kong.UsageOnError(),
		kong.Vars{"plotly_url": render.DefaultPlotlyURL},
	)

	err := ctx.Run(&cli.Globals)

	if cli.MetricsFile != "" {
		if merr := metrics.WriteTextfile(cli.MetricsFile); merr != nil {
			log.Printf("metrics: write %s: %v", cli.MetricsFile, merr)
		}
	}
	ctx.FatalIfErrorf(err)
}
