package plugins

import (
	"github.com/kilianp07/carbridge/connectors/file"
	"github.com/kilianp07/carbridge/connectors/simulated"
	"github.com/kilianp07/carbridge/infra/homeassistant"
	inframetrics "github.com/kilianp07/carbridge/infra/metrics"
	"github.com/kilianp07/carbridge/infra/mqtt"
)

func init() {
	must(RegisterConnector(simulated.ConnectorID, simulated.New))
	must(RegisterConnector(file.ConnectorID, file.New))

	must(RegisterPlugin(mqtt.PluginID, mqtt.New))
	must(RegisterPlugin(homeassistant.PluginID, homeassistant.New))
	must(RegisterPlugin(inframetrics.PrometheusPluginID, inframetrics.NewPrometheusPlugin))
	must(RegisterPlugin(inframetrics.InfluxPluginID, inframetrics.NewInfluxPlugin))
}
