package main

import (
	"fmt"
	"os"

	"github.com/HerbertGao/PicStitch/config"
	"github.com/HerbertGao/PicStitch/utils"
	"github.com/alecthomas/kong"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

const description = `拼好图：把图片挖洞分成底图与若干圆形采样层，再从这些文件还原原图。`

var cli struct {
	Config string `help:"Path to the YAML config file." default:"config.yaml"`

	Split   SplitCmd   `cmd:"" help:"Split an image into base.png + circle_*.png."`
	Merge   MergeCmd   `cmd:"" help:"Merge base.png + circle_*.png back into the original."`
	Serve   ServeCmd   `cmd:"" help:"Run the HTTP service."`
	Version VersionCmd `cmd:"" help:"Print version information."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("picstitch"),
		kong.Description(description),
		kong.UsageOnError(),
	)

	// 加载配置
	cfg := config.New(cli.Config)

	// 初始化日志
	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := kctx.Run(cfg); err != nil {
		utils.Sync()
		fmt.Fprintf(os.Stderr, "picstitch: %v\n", err)
		os.Exit(exitCode(err))
	}
	utils.Sync()
}
