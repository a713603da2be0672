package model

import "time"

// 主存储与嵌入式存储都不可用时返回的种子市场与分类

func seedTime(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func outcome(marketID, id, name string, probability float64, color string) MarketOutcome {
	return MarketOutcome{ID: id, MarketID: marketID, Name: name, Probability: probability, Color: StringPtr(color)}
}

// SeedMarkets 内置种子市场
func SeedMarkets() []Market {
	return []Market{
		{
			ID:          "market_1",
			Title:       "Will Bitcoin reach $100,000 by end of 2024?",
			Description: StringPtr("Bitcoin price prediction for end of year 2024"),
			Category:    "crypto",
			EndTime:     seedTime("2024-12-31T23:59:59Z"),
			Volume:      1000000,
			IsLive:      true,
			Outcomes: []MarketOutcome{
				outcome("market_1", "outcome_1_1", "Yes", 35, "#10b981"),
				outcome("market_1", "outcome_1_2", "No", 65, "#ef4444"),
			},
		},
		{
			ID:          "market_2",
			Title:       "Will Trump win the 2024 US Election?",
			Description: StringPtr("US Presidential Election 2024 prediction"),
			Category:    "politics",
			EndTime:     seedTime("2024-11-05T23:59:59Z"),
			Volume:      2500000,
			IsLive:      true,
			Outcomes: []MarketOutcome{
				outcome("market_2", "outcome_2_1", "Yes", 45, "#3b82f6"),
				outcome("market_2", "outcome_2_2", "No", 55, "#ef4444"),
			},
		},
		{
			ID:          "market_3",
			Title:       "Will AI achieve AGI by 2025?",
			Description: StringPtr("Artificial General Intelligence prediction"),
			Category:    "tech",
			EndTime:     seedTime("2025-12-31T23:59:59Z"),
			Volume:      800000,
			IsLive:      true,
			Outcomes: []MarketOutcome{
				outcome("market_3", "outcome_3_1", "Yes", 25, "#8b5cf6"),
				outcome("market_3", "outcome_3_2", "No", 75, "#6b7280"),
			},
		},
		{
			ID:       "market_4",
			Title:    "Russia x Ukraine ceasefire in 2025?",
			Category: "geopolitics",
			Volume:   18000000,
			Outcomes: []MarketOutcome{
				outcome("market_4", "outcome_4_1", "Yes", 26, "green"),
				outcome("market_4", "outcome_4_2", "No", 74, "red"),
			},
		},
		{
			ID:          "market_5",
			Title:       "Real Madrid vs. Mallorca",
			Category:    "sports",
			Subcategory: StringPtr("LALIGA"),
			Volume:      632000,
			IsLive:      true,
			Outcomes: []MarketOutcome{
				outcome("market_5", "outcome_5_1", "Real Madrid", 61, "yellow"),
				outcome("market_5", "outcome_5_2", "DRAW", 23, "grey"),
				outcome("market_5", "outcome_5_3", "Mallorca", 16, "red"),
			},
		},
	}
}

// SeedCategories 内置分类
func SeedCategories() []Category {
	mk := func(id, name, desc, color, icon string) Category {
		return Category{ID: id, Name: name, Description: StringPtr(desc), Color: StringPtr(color), Icon: StringPtr(icon)}
	}
	return []Category{
		mk("politics", "Politics", "Political events, elections, and government policies", "blue", "🏛️"),
		mk("sports", "Sports", "Sports events, tournaments, and athletic competitions", "green", "⚽"),
		mk("crypto", "Crypto", "Cryptocurrency markets, blockchain events, and DeFi", "yellow", "₿"),
		mk("geopolitics", "Geopolitics", "International relations, conflicts, and global events", "red", "🌍"),
		mk("tech", "Tech", "Technology news, startups, and innovation", "purple", "💻"),
		mk("culture", "Culture", "Entertainment, arts, and cultural events", "pink", "🎭"),
		mk("world", "World", "Global news and international events", "teal", "🌎"),
	}
}
