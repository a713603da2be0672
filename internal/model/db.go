package model

import (
	"time"

	"gorm.io/datatypes"
)

// User 用户，身份以钱包地址为准；ID 仅为各层内部的代理键，跨层不保证一致
type User struct {
	ID            string    `gorm:"column:id;primaryKey;type:varchar(64);comment:用户ID" json:"id"`
	WalletAddress string    `gorm:"column:wallet_address;type:varchar(128);uniqueIndex;not null;comment:用户钱包地址" json:"walletAddress"`
	Username      string    `gorm:"column:username;type:varchar(128);comment:用户名" json:"username"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime;comment:创建时间" json:"createdAt"`
}

// Bet 下注记录。市场标题、选项名称、概率、钱包地址在下单时冗余保存，避免跨层关联
// is_real_transaction 不能设 default，否则 gorm 会把 false 当零值跳过
type Bet struct {
	ID                string    `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	UserID            string    `gorm:"column:user_id;type:varchar(64);index;not null" json:"userId"`
	WalletAddress     string    `gorm:"column:wallet_address;type:varchar(128);index" json:"walletAddress,omitempty"`
	MarketID          string    `gorm:"column:market_id;type:varchar(64);index;not null" json:"marketId"`
	OutcomeID         string    `gorm:"column:outcome_id;type:varchar(64);not null" json:"outcomeId"`
	Amount            float64   `gorm:"column:amount;type:numeric(18,6);not null" json:"amount"`
	Status            string    `gorm:"column:status;type:varchar(16);default:pending" json:"status"`
	TransactionHash   *string   `gorm:"column:transaction_hash;type:varchar(128)" json:"transactionHash,omitempty"`
	IsRealTransaction bool      `gorm:"column:is_real_transaction" json:"isRealTransaction"`
	MarketTitle       *string   `gorm:"column:market_title;type:varchar(256)" json:"marketTitle,omitempty"`
	OutcomeName       *string   `gorm:"column:outcome_name;type:varchar(128)" json:"outcomeName,omitempty"`
	Probability       *float64  `gorm:"column:probability;type:numeric(8,4)" json:"probability,omitempty"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// Market 静态/种子市场
type Market struct {
	ID          string          `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	Title       string          `gorm:"column:title;type:varchar(256);not null" json:"title"`
	Description *string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Category    string          `gorm:"column:category;type:varchar(64)" json:"category"`
	CategoryID  *string         `gorm:"column:category_id;type:varchar(64)" json:"-"`
	Subcategory *string         `gorm:"column:subcategory;type:varchar(64)" json:"subcategory,omitempty"`
	EndTime     *time.Time      `gorm:"column:end_time" json:"endTime,omitempty"`
	Volume      float64         `gorm:"column:volume;type:numeric(18,6);default:0" json:"volume"`
	IsLive      bool            `gorm:"column:is_live" json:"isLive"`
	Outcomes    []MarketOutcome `gorm:"foreignKey:MarketID" json:"outcomes"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"-"`
}

// MarketOutcome 市场选项，Volume 不落库，由下注记录推导
type MarketOutcome struct {
	ID          string    `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	MarketID    string    `gorm:"column:market_id;type:varchar(64);index;not null" json:"-"`
	Name        string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Probability float64   `gorm:"column:probability;type:numeric(8,4);not null" json:"probability"`
	Color       *string   `gorm:"column:color;type:varchar(32)" json:"color,omitempty"`
	Volume      *float64  `gorm:"-" json:"volume,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
}

// Category 市场分类
type Category struct {
	ID          string    `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	Name        string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Description *string   `gorm:"column:description;type:text" json:"description,omitempty"`
	Color       *string   `gorm:"column:color;type:varchar(32)" json:"color,omitempty"`
	Icon        *string   `gorm:"column:icon;type:varchar(32)" json:"icon,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// Favorite 收藏（user_id + market_id 唯一）
type Favorite struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id,omitempty"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:uk_user_market" json:"userId"`
	MarketID  string    `gorm:"column:market_id;type:varchar(64);not null;uniqueIndex:uk_user_market" json:"marketId"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// CustomBet 自定义竞猜市场
type CustomBet struct {
	ID          string             `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	Title       string             `gorm:"column:title;type:varchar(256);not null" json:"title"`
	Description *string            `gorm:"column:description;type:text" json:"description,omitempty"`
	Category    *string            `gorm:"column:category;type:varchar(64)" json:"category,omitempty"`
	CategoryID  *string            `gorm:"column:category_id;type:varchar(64)" json:"categoryId,omitempty"`
	ExpiredDay  *time.Time         `gorm:"column:expired_day" json:"expiredDay,omitempty"`
	IsActive    bool               `gorm:"column:is_active;default:true" json:"isActive"`
	TotalVolume float64            `gorm:"column:total_volume;type:numeric(18,6);default:0" json:"totalVolume"`
	Outcomes    []CustomBetOutcome `gorm:"foreignKey:BetID" json:"outcomes"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// CustomBetOutcome 自定义竞猜选项，volume 为基础成交量
type CustomBetOutcome struct {
	ID          string    `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	BetID       string    `gorm:"column:bet_id;type:varchar(64);index;not null" json:"betId"`
	Name        string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Probability float64   `gorm:"column:probability;type:numeric(8,4);default:0" json:"probability"`
	Color       *string   `gorm:"column:color;type:varchar(32)" json:"color,omitempty"`
	Volume      float64   `gorm:"column:volume;type:numeric(18,6);default:0" json:"volume"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// Payment 支付引用记录，initiate 时落库，confirm/verify/webhook 时更新
type Payment struct {
	ID              string         `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	Reference       string         `gorm:"column:reference;type:varchar(256);uniqueIndex;not null" json:"reference"`
	Status          string         `gorm:"column:status;type:varchar(16);default:pending" json:"status"`
	Amount          float64        `gorm:"column:amount;type:numeric(18,6);not null" json:"amount"`
	Currency        string         `gorm:"column:currency;type:varchar(16)" json:"currency"`
	MarketID        string         `gorm:"column:market_id;type:varchar(64)" json:"marketId"`
	OutcomeID       string         `gorm:"column:outcome_id;type:varchar(64)" json:"outcomeId"`
	UserID          string         `gorm:"column:user_id;type:varchar(64);index" json:"userId,omitempty"`
	WalletAddress   string         `gorm:"column:wallet_address;type:varchar(128);index" json:"walletAddress,omitempty"`
	Description     string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Network         string         `gorm:"column:network;type:varchar(16)" json:"network"`
	TokenAmount     string         `gorm:"column:token_amount;type:varchar(80)" json:"tokenAmount"`
	TransactionHash *string        `gorm:"column:transaction_hash;type:varchar(128)" json:"transactionHash,omitempty"`
	BlockNumber     *int64         `gorm:"column:block_number" json:"blockNumber,omitempty"`
	PayCommand      datatypes.JSON `gorm:"column:pay_command" json:"payCommandInput,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string             { return "users" }
func (Bet) TableName() string              { return "bets" }
func (Market) TableName() string           { return "markets" }
func (MarketOutcome) TableName() string    { return "market_outcomes" }
func (Category) TableName() string         { return "categories" }
func (Favorite) TableName() string         { return "favorites" }
func (CustomBet) TableName() string        { return "custom_bets" }
func (CustomBetOutcome) TableName() string { return "custom_bet_outcomes" }
func (Payment) TableName() string          { return "payments" }

// AllTables 迁移顺序（按依赖）
func AllTables() []interface{} {
	return []interface{}{
		&Category{},
		&User{},
		&Market{},
		&MarketOutcome{},
		&Bet{},
		&Favorite{},
		&CustomBet{},
		&CustomBetOutcome{},
		&Payment{},
	}
}
