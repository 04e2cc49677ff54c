package wire

import "testing"

func TestPreventAllowMediumRemovalRoundTrip(t *testing.T) {
	cmd := &PreventAllowMediumRemovalCommand{LUN: 0, Prevent: true}
	cbw := cmd.BuildCBW(1)

	got, err := ParsePreventAllowMediumRemovalCommand(&cbw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if *got != *cmd {
		t.Fatalf("round-trip = %+v, want %+v", got, cmd)
	}
	if cbw.DataTransferLength != 0 || cbw.Direction().String() != "none" {
		t.Fatalf("expected no data phase, got direction %s length %d", cbw.Direction(), cbw.DataTransferLength)
	}
}

func TestStartStopUnitRoundTrip(t *testing.T) {
	cmd := &StartStopUnitCommand{LUN: 0, Start: false, LoEj: true}
	cbw := cmd.BuildCBW(2)

	got, err := ParseStartStopUnitCommand(&cbw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if *got != *cmd {
		t.Fatalf("round-trip = %+v, want %+v", got, cmd)
	}
}

func TestSynchronizeCache10RoundTrip(t *testing.T) {
	cmd := &SynchronizeCache10Command{LUN: 0}
	cbw := cmd.BuildCBW(3)

	if cbw.CBLength != 10 {
		t.Fatalf("cb_length = %d, want 10", cbw.CBLength)
	}
	if _, err := ParseSynchronizeCache10Command(&cbw); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestVerify10RoundTrip(t *testing.T) {
	cmd := &Verify10Command{LUN: 0, BlockAddress: 123, VerificationLength: 4}
	cbw := cmd.BuildCBW(4)

	got, err := ParseVerify10Command(&cbw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if *got != *cmd {
		t.Fatalf("round-trip = %+v, want %+v", got, cmd)
	}
}

func TestSupplementedCommandsOccupyFixedWidth(t *testing.T) {
	cases := []struct {
		name     string
		cbw      CommandBlockWrapper
		cbLength uint8
	}{
		{"prevent-allow", (&PreventAllowMediumRemovalCommand{}).BuildCBW(0), 6},
		{"start-stop", (&StartStopUnitCommand{}).BuildCBW(0), 6},
		{"sync-cache", (&SynchronizeCache10Command{}).BuildCBW(0), 10},
		{"verify10", (&Verify10Command{}).BuildCBW(0), 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, 31)
			n, err := tc.cbw.MarshalTo(buf)
			if err != nil {
				t.Fatalf("MarshalTo: %v", err)
			}
			if n != 31 {
				t.Fatalf("MarshalTo returned %d, want 31", n)
			}
			if buf[14] != tc.cbLength {
				t.Fatalf("cb_length byte = %d, want %d", buf[14], tc.cbLength)
			}
		})
	}
}
