// Package dbn trains deep belief networks: stacks of layers described in package layer,
// pretrained one restricted Boltzmann machine at a time with contrastive divergence and
// fine-tuned with mini-batch gradient descent.
//
// A network is built from ready or dynamic layers:
//
//	n, err := dbn.New(dbn.DefaultConfig(), rbm1, rbm2, output)
//	err = n.Pretrain(data, 10)
//	e, err := n.FineTune(data, labels, 50)
//
// Multiplexing layers (patch extraction, augmentation) may only come first. Their samples
// are expanded before training, every label being repeated for the samples produced from
// its input.
package dbn
