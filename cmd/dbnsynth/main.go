package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/gorgonia/dbn"
	"github.com/gorgonia/dbn/encoding/gif"
	"github.com/gorgonia/dbn/layer"
	"gorgonia.org/tensor"
)

var (
	samples  = flag.Int("samples", 200, "number of synthetic images")
	pretrain = flag.Int("pretrain", 10, "pretraining epochs")
	finetune = flag.Int("finetune", 20, "fine-tuning epochs")
	updater  = flag.String("updater", "momentum", "fine-tuning updater: momentum, adam or rmsprop")
	driver   = flag.String("lr", "fixed", "learning rate driver: fixed, bold or step")
	seed     = flag.Int64("seed", 1337, "random seed")
	verbose  = flag.Bool("v", false, "log every epoch")
	outDir   = flag.String("out", ".", "directory of the statistics, graph and filter files")
)

const side = 12

// bars draws n noisy images of horizontal (class 0) or vertical (class 1) bars.
func bars(r *rand.Rand, n int) (*tensor.Dense, []int) {
	data := tensor.New(tensor.Of(tensor.Float32), tensor.WithShape(n, 1, side, side))
	classes := make([]int, n)
	raw := data.Float32s()
	for i := 0; i < n; i++ {
		c := r.Intn(2)
		classes[i] = c
		img := raw[i*side*side : (i+1)*side*side]
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				on := y%3 == 0
				if c == 1 {
					on = x%3 == 0
				}
				if r.Float64() < 0.05 {
					on = !on
				}
				if on {
					img[y*side+x] = 1
				}
			}
		}
	}
	return data, classes
}

func build() []layer.Layer {
	descs := []layer.Desc{
		layer.Must(layer.Patches(side, side, 8, 8, 4, 4)),
		layer.Must(layer.ConvRBM(1, 8, 8, 4, 3, 3, layer.WithBatchSize(10), layer.WithMomentum(), layer.Shuffle(),
			layer.WithSparsity(layer.Lee), layer.WithBias(layer.SimpleBias), layer.Verbose())),
		layer.Must(layer.MaxPool(4, 6, 6, 1, 2, 2)),
		layer.Must(layer.DynDenseRBM(layer.WithDecay(layer.L2), layer.WithMomentum(), layer.WithInitWeights(), layer.Verbose(), layer.WithFreeEnergy())),
		layer.Must(layer.DenseRBM(20, 2, layer.WithHidden(layer.SoftmaxUnit))),
	}
	retVal := make([]layer.Layer, len(descs))
	for i, d := range descs {
		l, err := d.Layer()
		if err != nil {
			log.Fatalf("layer %d: %+v", i, err)
		}
		retVal[i] = l
	}
	return retVal
}

func parseUpdater(s string) dbn.Updater {
	switch s {
	case "adam":
		return dbn.Adam
	case "rmsprop":
		return dbn.RMSProp
	}
	return dbn.Momentum
}

func parseDriver(s string) dbn.LRDriver {
	switch s {
	case "bold":
		return dbn.Bold
	case "step":
		return dbn.Step
	}
	return dbn.Fixed
}

func main() {
	flag.Parse()

	conf := dbn.DefaultConfig()
	conf.Seed = *seed
	conf.Verbose = *verbose
	conf.Updater = parseUpdater(*updater)
	conf.LRDriver = parseDriver(*driver)
	if conf.Updater != dbn.Momentum {
		conf.LearningRate = 0.01
	}

	n, err := dbn.New(conf, build()...)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	// the dense RBM is dynamic: size it from the pooled features
	if err := n.InitLayer(3, n.Layer(2).OutputSize(), 20); err != nil {
		log.Fatalf("%+v", err)
	}
	fmt.Print(n)

	data, classes := bars(rand.New(rand.NewSource(*seed)), *samples)
	labels, err := dbn.OneHot(tensor.Float32, classes, 2)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	f, err := os.Create(filepath.Join(*outDir, "filters.gif"))
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	enc := gif.NewGifEncoder(f, 8)
	frame := func(caption string) {
		tiles, err := gif.Filters(n.Layer(1).(gif.Weighted), 0, 0)
		if err != nil {
			log.Fatalf("%+v", err)
		}
		if err := enc.Encode(tiles, caption); err != nil {
			log.Fatalf("%+v", err)
		}
	}

	frame("initial")
	if err := n.Pretrain(data, *pretrain); err != nil {
		log.Fatalf("%+v", err)
	}
	frame(fmt.Sprintf("pretrained %d epochs", *pretrain))
	e, err := n.FineTune(data, labels, *finetune)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	frame(fmt.Sprintf("fine-tuned %d epochs, error %.3f", *finetune, e))
	if err := enc.Flush(); err != nil {
		log.Fatal(err)
	}

	test, testClasses := bars(rand.New(rand.NewSource(*seed+1)), *samples/4)
	testLabels, err := dbn.OneHot(tensor.Float32, testClasses, 2)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	testErr, err := n.Error(test, testLabels)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	log.Printf("training error %.4f, test error %.4f", e, testErr)

	if err := n.Statistics.Dump(filepath.Join(*outDir, "statistics.csv")); err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(*outDir, "network.dot"), []byte(n.ToDot()), 0644); err != nil {
		log.Fatal(err)
	}
	if err := n.Log(os.Stdout); err != nil {
		log.Fatal(err)
	}
}
