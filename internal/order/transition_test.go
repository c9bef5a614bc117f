package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		current OrderStatus
		target  OrderStatus
		wantErr error
	}{
		{StatusCreated, StatusPaid, nil},
		{StatusPaid, StatusDelivered, nil},
		{StatusCreated, StatusDelivered, ErrInvalidStatusTransition},
		{StatusPaid, StatusPaid, ErrStatusAlreadySet},
		{StatusDelivered, StatusDelivered, ErrStatusAlreadySet},
		{StatusDelivered, StatusPaid, ErrStatusAlreadySet},
		{StatusDelivered, StatusCreated, ErrInvalidStatusTransition},
		{StatusPaid, StatusCreated, ErrInvalidStatusTransition},
	}

	for _, tt := range tests {
		t.Run(string(tt.current)+"_to_"+string(tt.target), func(t *testing.T) {
			err := checkTransition(tt.current, tt.target)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOrder_Status(t *testing.T) {
	o := &Order{}
	assert.Equal(t, StatusCreated, o.Status())
	o.IsPaid = true
	assert.Equal(t, StatusPaid, o.Status())
	o.IsDelivered = true
	assert.Equal(t, StatusDelivered, o.Status())
}
