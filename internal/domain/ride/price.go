package ride

import "fmt"

// Price is an amount in minor currency units
type Price int64

// Validate rejects negative amounts
func (p Price) Validate() error {
	if p < 0 {
		return fmt.Errorf("%w: %d is negative", ErrInvalidPrice, p)
	}
	return nil
}

// Times multiplies the price by a seat count
func (p Price) Times(n int) Price {
	return p * Price(n)
}

func (p Price) String() string {
	return fmt.Sprintf("%d.%02d", p/100, p%100)
}
