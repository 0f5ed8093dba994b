package layer

import (
	"fmt"

	"github.com/gorgonia/dbn/internal/num"
	"gorgonia.org/tensor"
)

// row returns the i-th sample of size elements of a flat batch.
func row[T num.Float](a []T, i, size int) []T { return a[i*size : (i+1)*size] }

// adaptErrors applies the derivative of f to the errors of ctx.
func adaptErrors[T num.Float](f Func, ctx *Context) {
	if f == Identity {
		return
	}
	num.Derivative(f, num.Raw[T](ctx.Errors), num.Raw[T](ctx.Output))
}

func zeroAll[T num.Float](ts []*tensor.Dense) {
	for _, t := range ts {
		num.Zero(num.Raw[T](t))
	}
}

func dynSuffix(d Desc) string {
	if d.Dynamic {
		return "(dyn)"
	}
	return ""
}

func shapeString(s tensor.Shape) string {
	retVal := ""
	for i, v := range s {
		if i > 0 {
			retVal += "x"
		}
		retVal += fmt.Sprint(v)
	}
	return retVal
}
