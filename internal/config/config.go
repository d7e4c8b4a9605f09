package config

import (
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "./config/local.yaml"

type Config struct {
	Env        string `yaml:"env" env:"PLANTOPS_ENV" env-default:"prod"`
	HTTPServer `yaml:"http_server"`
	Storage    Storage    `yaml:"storage"`
	CORS       CORS       `yaml:"cors"`
	Production Production `yaml:"production"`
	Telemetry  Telemetry  `yaml:"telemetry"`
	Admin      Admin      `yaml:"admin"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"PLANTOPS_ADDRESS" env-default:"localhost:4001"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Storage struct {
	// Driver is either "mysql" or "memory".
	Driver     string `yaml:"driver" env:"PLANTOPS_STORAGE_DRIVER" env-default:"mysql"`
	DBUser     string `yaml:"db_user" env:"PLANTOPS_DB_USER"`
	DBPassword string `yaml:"db_password" env:"PLANTOPS_DB_PASSWORD"`
	DBHost     string `yaml:"db_host" env:"PLANTOPS_DB_HOST" env-default:"localhost"`
	DBPort     int    `yaml:"db_port" env:"PLANTOPS_DB_PORT" env-default:"3306"`
	DBName     string `yaml:"db_name" env:"PLANTOPS_DB_NAME" env-default:"plantops"`
	Migrate    bool   `yaml:"migrate" env:"PLANTOPS_DB_MIGRATE" env-default:"false"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"PLANTOPS_CORS_ORIGINS" env-default:"http://localhost:5173"`
}

type Production struct {
	// MaxOrderQty caps the quantity of a single daily manufacturing order.
	MaxOrderQty float64 `yaml:"max_order_qty" env:"PLANTOPS_MAX_ORDER_QTY" env-default:"7"`
	Timezone    string  `yaml:"timezone" env:"PLANTOPS_TIMEZONE" env-default:"UTC"`
}

type Telemetry struct {
	Token string `yaml:"token" env:"PLANTOPS_TELEMETRY_TOKEN"`
}

// Admin is the account seeded at startup when no user with this login exists.
type Admin struct {
	Login    string `yaml:"login" env:"PLANTOPS_ADMIN_LOGIN" env-default:"admin"`
	Password string `yaml:"password" env:"PLANTOPS_ADMIN_PASSWORD"`
}

// DSN builds the go-sql-driver/mysql data source name. Credentials are escaped by the driver.
func (s Storage) DSN() string {
	c := mysql.NewConfig()
	c.User = s.DBUser
	c.Passwd = s.DBPassword
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(s.DBHost, strconv.Itoa(s.DBPort))
	c.DBName = s.DBName
	c.ParseTime = true
	c.Loc = time.UTC
	return c.FormatDSN()
}

// Location resolves the production timezone, falling back to UTC.
func (p Production) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		// no file: environment only
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustConfig() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return cfg
}
