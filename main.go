package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/controllers"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/routes"
	"github.com/cppla/blogicum/store"
	"github.com/cppla/blogicum/utils"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config.json or config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db, err := config.OpenDatabase(cfg, zap.NewStdLog(utils.Logger), models.All()...)
	if err != nil {
		utils.Sugar.Fatalf("database init failed: %v", err)
	}

	st := store.New(db)
	if n, err := st.GrantStaff(context.Background(), cfg.AdminUsernames); err != nil {
		utils.Sugar.Fatalf("staff sync failed: %v", err)
	} else if n > 0 {
		utils.Sugar.Infof("granted staff to %d account(s)", n)
	}

	rc := utils.NewRedis(cfg)
	env := &controllers.Env{
		Config:    cfg,
		Store:     st,
		Cache:     utils.NewCache(rc, time.Duration(cfg.ListCacheSeconds)*time.Second),
		Blacklist: utils.NewTokenBlacklist(rc),
		Renderer:  utils.JSONRenderer{},
	}
	r := routes.SetupRouter(env)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
