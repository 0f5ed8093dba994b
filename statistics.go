package dbn

import (
	"encoding/csv"
	"os"
	"strconv"
)

// Statistics records the progress of training, one entry per epoch.
type Statistics struct {
	// Pretrained lists the pretrained layers in training order.
	Pretrained []int
	// Reconstruction holds the mean reconstruction error of every pretrained layer.
	Reconstruction map[int][]float64

	FineTuneError []float64
	LearningRates []float64
}

func makeStatistics() Statistics {
	return Statistics{
		Pretrained:     make([]int, 0, 8),
		Reconstruction: make(map[int][]float64),
	}
}

func (s *Statistics) pretrained(layer int, err float64) {
	if _, ok := s.Reconstruction[layer]; !ok {
		s.Pretrained = append(s.Pretrained, layer)
	}
	s.Reconstruction[layer] = append(s.Reconstruction[layer], err)
}

func (s *Statistics) fineTuned(err, lr float64) {
	s.FineTuneError = append(s.FineTuneError, err)
	s.LearningRates = append(s.LearningRates, lr)
}

// Dump writes the statistics as CSV with the columns phase, layer, epoch, error and
// learning rate.
func (s *Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"phase", "layer", "epoch", "error", "learning_rate"}); err != nil {
		return err
	}
	var records [][]string
	for _, l := range s.Pretrained {
		for epoch, e := range s.Reconstruction[l] {
			records = append(records, []string{"pretrain", strconv.Itoa(l), strconv.Itoa(epoch), formatFloat(e), ""})
		}
	}
	for epoch, e := range s.FineTuneError {
		records = append(records, []string{"finetune", "", strconv.Itoa(epoch), formatFloat(e), formatFloat(s.LearningRates[epoch])})
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', 5, 64) }
