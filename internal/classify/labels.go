package classify

import "github.com/larchwood/logsift/internal/config"

// DefaultSignals is the built-in golden-signal vocabulary.
func DefaultSignals() []Label {
	return []Label{
		{Name: "information", Description: "routine informational message"},
		{Name: "error", Description: "an error, exception or failure"},
		{Name: "availability", Description: "a component is down or unreachable"},
		{Name: "latency", Description: "slow response or operation timeout"},
		{Name: "saturation", Description: "resource exhaustion, disk or memory full"},
		{Name: "traffic", Description: "unusual request volume or load"},
	}
}

// DefaultFaults is the built-in fault-category vocabulary.
func DefaultFaults() []Label {
	return []Label{
		{Name: "io", Description: "disk, file or storage input output fault"},
		{Name: "authentication", Description: "authentication or authorization fault"},
		{Name: "network", Description: "network connectivity fault"},
		{Name: "application", Description: "application logic fault"},
		{Name: "device", Description: "hardware or device fault"},
	}
}

// LabelsFromConfig converts engine-file vocabulary entries.
func LabelsFromConfig(cfgs []config.LabelConfig) []Label {
	labels := make([]Label, 0, len(cfgs))
	for _, c := range cfgs {
		labels = append(labels, Label{Name: c.Name, Description: c.Description})
	}
	return labels
}
