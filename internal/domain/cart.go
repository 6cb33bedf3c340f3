package domain

// Seller is the shop that owns a product. Every cart line belongs to exactly
// one seller; checkout partitions the selected lines by seller.
type Seller struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
}

type Product struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Price         int64   `json:"price"`
	OriginalPrice int64   `json:"originalPrice,omitempty"`
	MainImage     string  `json:"mainImage,omitempty"`
	Stock         int     `json:"stock"`
	Seller        *Seller `json:"seller,omitempty"`
}

// CartItem is one line of the cart. Quantity stays within [1, Product.Stock];
// Selected is an independent per-line flag.
type CartItem struct {
	ID       int64   `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
	Selected bool    `json:"selected"`
	Subtotal int64   `json:"subtotal,omitempty"`
}

// Cart is an insertion-ordered sequence of lines. All totals are recomputed
// from the current lines on every call, nothing is cached across mutations.
type Cart struct {
	Items []CartItem `json:"items"`
}

func (c *Cart) TotalItems() int {
	sum := 0
	for _, item := range c.Items {
		sum += item.Quantity
	}
	return sum
}

func (c *Cart) TotalAmount() int64 {
	var sum int64
	for _, item := range c.Items {
		sum += item.Product.Price * int64(item.Quantity)
	}
	return sum
}

func (c *Cart) SelectedTotal() int64 {
	var sum int64
	for _, item := range c.Items {
		if item.Selected {
			sum += item.Product.Price * int64(item.Quantity)
		}
	}
	return sum
}

func (c *Cart) SelectedItems() []CartItem {
	var out []CartItem
	for _, item := range c.Items {
		if item.Selected {
			out = append(out, item)
		}
	}
	return out
}

func (c *Cart) FindItem(itemID int64) *CartItem {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

func (c *Cart) FindByProduct(productID int64) *CartItem {
	for i := range c.Items {
		if c.Items[i].Product.ID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// SellerGroup is the partition of cart lines by owning seller.
type SellerGroup struct {
	SellerID   int64      `json:"sellerId"`
	SellerName string     `json:"sellerName"`
	Items      []CartItem `json:"items"`
	Subtotal   int64      `json:"subtotal"`
}

// GroupBySeller partitions the lines by seller, preserving the order in which
// each seller first appears in the cart.
func (c *Cart) GroupBySeller() []SellerGroup {
	var groups []SellerGroup
	index := make(map[int64]int)
	for _, item := range c.Items {
		var sellerID int64
		sellerName := ""
		if item.Product.Seller != nil {
			sellerID = item.Product.Seller.ID
			sellerName = item.Product.Seller.FullName
		}
		i, ok := index[sellerID]
		if !ok {
			i = len(groups)
			index[sellerID] = i
			groups = append(groups, SellerGroup{SellerID: sellerID, SellerName: sellerName})
		}
		groups[i].Items = append(groups[i].Items, item)
		groups[i].Subtotal += item.Product.Price * int64(item.Quantity)
	}
	return groups
}
