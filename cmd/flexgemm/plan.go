package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/flexgemm-ml/flexgemm/launch"
)

// shapeSpec is one convolution entry in the input file. Stride, dilation
// and groups default to 1; direction defaults to forward.
type shapeSpec struct {
	Batch       uint32 `yaml:"batch"`
	InChannels  uint32 `yaml:"in_channels"`
	OutChannels uint32 `yaml:"out_channels"`
	InH         uint32 `yaml:"in_h"`
	InW         uint32 `yaml:"in_w"`
	KernelH     uint32 `yaml:"kernel_h"`
	KernelW     uint32 `yaml:"kernel_w"`
	PadH        uint32 `yaml:"pad_h"`
	PadW        uint32 `yaml:"pad_w"`
	StrideH     uint32 `yaml:"stride_h"`
	StrideW     uint32 `yaml:"stride_w"`
	DilationH   uint32 `yaml:"dilation_h"`
	DilationW   uint32 `yaml:"dilation_w"`
	Groups      uint32 `yaml:"groups"`
	Direction   string `yaml:"direction"`
}

type shapeFile struct {
	Shapes []shapeSpec `yaml:"shapes"`
}

// planRecord is one line of CLI output.
type planRecord struct {
	Direction   string `json:"direction"`
	RoutineID   uint32 `json:"routine_id"`
	K           uint32 `json:"k"`
	PaddedK     uint32 `json:"padded_k"`
	M           uint32 `json:"m"`
	NTidx       uint32 `json:"ntidx"`
	LDA         uint32 `json:"lda"`
	PadBufSize  uint64 `json:"pad_buf_size"`
	PermBufSize uint64 `json:"perm_buf_size"`
	IdxBufSize  uint64 `json:"idx_buf_size"`
	AuxBufSize  uint64 `json:"aux_buf_size"`

	Unified *unifiedRecord `json:"unified,omitempty"`
}

type unifiedRecord struct {
	Packed uint32       `json:"packed_routine"`
	NTidx  uint32       `json:"ntidx"`
	MagicA magicRecord  `json:"magic_a"`
	MagicC *magicRecord `json:"magic_c,omitempty"`
}

type magicRecord struct {
	M uint32 `json:"m"`
	S uint32 `json:"s"`
}

func planCmd() *cli.Command {
	var (
		file    string
		unified bool
	)
	return &cli.Command{
		Name:  "plan",
		Usage: "Compute launch parameters for shapes in a YAML file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "YAML file with a 'shapes' list",
				Required:    true,
				Destination: &file,
			},
			&cli.BoolFlag{
				Name:        "unified",
				Usage:       "also plan the unified (near-GEMM) regime",
				Destination: &unified,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runPlan(file, unified)
		},
	}
}

func runPlan(path string, unified bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read shapes: %w", err)
	}
	var f shapeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse shapes: %w", err)
	}
	if len(f.Shapes) == 0 {
		return fmt.Errorf("no shapes in %s", path)
	}

	records := make([]planRecord, 0, len(f.Shapes))
	for i, spec := range f.Shapes {
		shape, err := spec.toShape()
		if err != nil {
			return fmt.Errorf("shape %d: %w", i, err)
		}
		records = append(records, plan(shape, unified))
	}

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func plan(shape launch.ConvShape, unified bool) planRecord {
	p := launch.Build(shape)
	rec := planRecord{
		Direction:   p.Dir.String(),
		RoutineID:   p.RoutineID(),
		K:           p.K,
		PaddedK:     p.PaddedK,
		M:           p.M,
		NTidx:       p.NTidx,
		LDA:         p.LDA,
		PadBufSize:  p.PadBufSize,
		PermBufSize: p.PermBufSize,
		IdxBufSize:  p.IdxBufSize,
		AuxBufSize:  p.AuxBufSize(),
	}
	if unified {
		u := launch.BuildUnified(shape)
		ur := &unifiedRecord{
			Packed: u.Routine.Pack(),
			NTidx:  u.NTidx,
			MagicA: magicRecord{M: u.MagicA.M, S: u.MagicA.S},
		}
		if u.HasMagicC {
			ur.MagicC = &magicRecord{M: u.MagicC.M, S: u.MagicC.S}
		}
		rec.Unified = ur
	}
	return rec
}

func (s shapeSpec) toShape() (launch.ConvShape, error) {
	if s.KernelH == 0 || s.KernelW == 0 {
		return launch.ConvShape{}, fmt.Errorf("kernel size must be positive, got %dx%d", s.KernelH, s.KernelW)
	}
	strideH, strideW := defaultOne(s.StrideH), defaultOne(s.StrideW)
	dilH, dilW := defaultOne(s.DilationH), defaultOne(s.DilationW)
	groups := defaultOne(s.Groups)

	var dir launch.Direction
	switch s.Direction {
	case "", "forward":
		dir = launch.Forward
	case "backward", "backward-data":
		dir = launch.BackwardData
	default:
		return launch.ConvShape{}, fmt.Errorf("unknown direction %q", s.Direction)
	}

	return launch.NewConvShape(
		s.Batch, s.InChannels, s.OutChannels,
		s.InH, s.InW,
		s.KernelH, s.KernelW,
		s.PadH, s.PadW,
		strideH, strideW,
		dilH, dilW,
		groups, dir,
	), nil
}

func defaultOne(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}
