package main

import "errors"

// ErrDivisionByZero is returned by Calculator.Divide
var ErrDivisionByZero = errors.New("division by zero")

// Calculator is the target invoked by the CLI
type Calculator struct{}

func (Calculator) Add(a, b int) int { return a + b }

func (Calculator) Subtract(a, b int) int { return a - b }

func (Calculator) Multiply(a, b int) int { return a * b }

func (Calculator) Divide(a, b int) (int, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	return a / b, nil
}
