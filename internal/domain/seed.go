package domain

// SeedUsers returns the fixed user directory.
func SeedUsers() []User {
	return []User{
		{ID: "1000", Name: "Josphat Karumi", Role: RoleUser},
		{ID: "1001", Name: "Magarida Otieno", Role: RoleAdmin},
		{ID: "1002", Name: "Muchiri Hospari", Role: RoleUser},
	}
}

// SeedProducts returns the initial catalog, in insertion order.
func SeedProducts() []Product {
	return []Product{
		{
			ID:          "1",
			Name:        "Laptop",
			Description: "High-performance laptop with 16GB RAM",
			Price:       1200,
			Category:    "electronics",
			InStock:     true,
		},
		{
			ID:          "2",
			Name:        "Smartphone",
			Description: "Latest model with 128GB storage",
			Price:       800,
			Category:    "electronics",
			InStock:     true,
		},
		{
			ID:          "3",
			Name:        "Coffee Maker",
			Description: "Programmable coffee maker with timer",
			Price:       50,
			Category:    "kitchen",
			InStock:     false,
		},
	}
}
