package core

// SeedCategories are the categories every fresh store starts with.
var SeedCategories = []string{
	"Arriendo",
	"Almuerzos",
	"Locomoción",
	"Luz",
	"Celular",
	"Aseo Municipal",
	"Vtr",
	"Tio Felix",
	"Seguro Auto",
	DefaultCategoryName,
	"Visa",
}

// SeedFixedExpenses are the recurring monthly obligations.
var SeedFixedExpenses = []FixedExpense{
	{Name: "Arriendo", Amount: 402420},
	{Name: "Almuerzos", Amount: 100000},
	{Name: "Locomocion", Amount: 21200},
	{Name: "Luz", Amount: 0},
	{Name: "Celular", Amount: 10990},
	{Name: "Internet", Amount: 9990},
	{Name: "Tio Felix", Amount: 80000},
	{Name: "Seguro Auto", Amount: 0},
}
