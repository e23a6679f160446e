package fulfillment

import (
	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/YelzhanWeb/fulfillment/internal/interfaces"
)

// BuildLabel renders a shipping label from the order as it is right now.
func BuildLabel(o *domain.Order) interfaces.ShippingLabel {
	lines := make([]interfaces.LabelLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, interfaces.LabelLine{
			Name:     item.Name,
			Size:     item.SelectedSize,
			Color:    item.SelectedColor,
			Quantity: item.Quantity,
		})
	}

	return interfaces.ShippingLabel{
		OrderID:       o.ID,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		Address:       o.Address,
		Pickup:        o.Pickup,
		CourierID:     o.CourierID,
		Lines:         lines,
		Total:         o.Total,
		AmountDue:     o.AmountDue(),
	}
}
