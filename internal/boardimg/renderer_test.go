package boardimg

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func TestRenderStartingPosition(t *testing.T) {
	g := nchess.NewGame()
	data, err := RenderPNG(context.Background(), g.Position().Board(), Options{
		Title:   "Alice vs Stockfish",
		Caption: "In progress",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	bounds := img.Bounds()
	wantW := boardSize + sideMargin*2
	wantH := boardSize + topMargin + bottomMargin
	if bounds.Dx() != wantW || bounds.Dy() != wantH {
		t.Fatalf("image %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), wantW, wantH)
	}
}

func TestRenderWithHighlight(t *testing.T) {
	g := nchess.NewGame()
	mv, err := nchess.UCINotation{}.Decode(g.Position(), "e2e4")
	if err != nil {
		t.Fatalf("decode move: %v", err)
	}
	if err := g.Move(mv, nil); err != nil {
		t.Fatalf("move: %v", err)
	}

	data, err := RenderPNG(context.Background(), g.Position().Board(), Options{
		Highlight: &MoveHighlight{From: nchess.E2, To: nchess.E4},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("empty png")
	}
}

func TestRenderNilBoard(t *testing.T) {
	if _, err := RenderPNG(context.Background(), nil, Options{}); err == nil {
		t.Fatalf("nil board accepted")
	}
}

func TestPieceAssetNames(t *testing.T) {
	cases := []struct {
		piece nchess.Piece
		want  string
	}{
		{nchess.WhiteKing, "assets/pieces/wK.svg"},
		{nchess.BlackQueen, "assets/pieces/bQ.svg"},
		{nchess.WhitePawn, "assets/pieces/wP.svg"},
		{nchess.BlackKnight, "assets/pieces/bN.svg"},
	}
	for _, tc := range cases {
		if got := pieceAssetName(tc.piece); got != tc.want {
			t.Fatalf("pieceAssetName(%v) = %s, want %s", tc.piece, got, tc.want)
		}
	}
	for _, tc := range cases {
		if _, err := pieceFiles.ReadFile(tc.want); err != nil {
			t.Fatalf("missing asset %s: %v", tc.want, err)
		}
	}
}
